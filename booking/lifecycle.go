package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"

	"boxoffice/entity"
)

type BookingsRepository interface {
	Store(ctx context.Context, booking entity.Booking) error
	Get(ctx context.Context, bookingID string) (entity.Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, status entity.BookingStatus) error
	ListByUser(ctx context.Context, userID string, limit, offset int, status entity.BookingStatus) ([]entity.Booking, error)
}

// PaymentPublisher hands a confirmed booking off to the payment queue.
type PaymentPublisher interface {
	PublishPayment(ctx context.Context, msg entity.PaymentMessage) error
}

// LifecycleManager owns the booking state machine:
// reserved -> processing -> confirmed, with exits to cancelled and the
// lazily detected reserved -> expired transition. Nothing sweeps expired
// bookings proactively; expiry is observed at confirmation time and the
// store's retention marker handles physical cleanup.
type LifecycleManager struct {
	bookings  BookingsRepository
	tickets   TicketsRepository
	cache     Cache
	publisher PaymentPublisher
}

func NewLifecycleManager(
	bookings BookingsRepository,
	tickets TicketsRepository,
	cache Cache,
	publisher PaymentPublisher,
) *LifecycleManager {
	return &LifecycleManager{
		bookings:  bookings,
		tickets:   tickets,
		cache:     cache,
		publisher: publisher,
	}
}

// Create persists a new booking in reserved state. The tickets snapshot is
// immutable from here on. The reservation-processing message rides the same
// transaction as the insert (repository contract).
func (m *LifecycleManager) Create(ctx context.Context, userID, eventID string, tickets entity.ReservedTickets) (entity.Booking, error) {
	now := time.Now().UTC()
	booking := entity.Booking{
		BookingID:     uuid.NewString(),
		UserID:        userID,
		EventID:       eventID,
		Tickets:       tickets,
		TotalAmount:   tickets.TotalAmount(),
		Status:        entity.BookingStatusReserved,
		ReservedUntil: now.Add(ReservationWindow),
		CreatedAt:     now,
		UpdatedAt:     now,
		PurgeAfter:    now.Add(ReservationWindow + purgeRetention),
	}

	if err := m.bookings.Store(ctx, booking); err != nil {
		return entity.Booking{}, fmt.Errorf("could not store booking: %w", err)
	}

	m.cacheBooking(ctx, booking)

	return booking, nil
}

// Confirm moves a reserved booking to processing and enqueues payment.
// Success means handed off, not paid. Confirming past the reservation
// deadline releases the tickets and fails: an expired booking can never
// proceed to payment.
func (m *LifecycleManager) Confirm(ctx context.Context, bookingID, userID string, paymentMethod json.RawMessage) (entity.Booking, error) {
	booking, err := m.load(ctx, bookingID)
	if err != nil {
		return entity.Booking{}, err
	}

	if booking.UserID != userID {
		return entity.Booking{}, entity.ErrUnauthorized
	}

	if booking.Status != entity.BookingStatusReserved {
		return entity.Booking{}, fmt.Errorf("%w: cannot confirm booking with status %s", entity.ErrConflict, booking.Status)
	}

	if time.Now().UTC().After(booking.ReservedUntil) {
		if err := m.release(ctx, booking, entity.BookingStatusExpired); err != nil {
			log.FromContext(ctx).WithError(err).
				WithField("booking_id", bookingID).
				Error("could not expire booking")
		}
		return entity.Booking{}, entity.ErrReservationExpired
	}

	if err := m.bookings.UpdateStatus(ctx, bookingID, entity.BookingStatusProcessing); err != nil {
		return entity.Booking{}, fmt.Errorf("could not update booking status: %w", err)
	}

	booking.Status = entity.BookingStatusProcessing
	booking.UpdatedAt = time.Now().UTC()
	m.cacheBooking(ctx, booking)

	// Fire and forget: downstream payment processing is not awaited, and a
	// failed enqueue must not mask the successful hand-off to processing.
	if err := m.publisher.PublishPayment(ctx, entity.NewPaymentMessage(booking, paymentMethod)); err != nil {
		log.FromContext(ctx).WithError(err).
			WithField("booking_id", bookingID).
			Error("could not enqueue payment processing")
	}

	return booking, nil
}

// Cancel releases the booking's tickets and finalizes it as cancelled.
// Already-terminal bookings are rejected, as are confirmed ones, which
// require a separate refund path.
func (m *LifecycleManager) Cancel(ctx context.Context, bookingID, userID string) error {
	booking, err := m.load(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.UserID != userID {
		return entity.ErrUnauthorized
	}

	switch booking.Status {
	case entity.BookingStatusCancelled, entity.BookingStatusExpired:
		return fmt.Errorf("%w: booking already cancelled", entity.ErrConflict)
	case entity.BookingStatusConfirmed:
		return fmt.Errorf("%w: cannot cancel confirmed booking", entity.ErrConflict)
	}

	return m.release(ctx, booking, entity.BookingStatusCancelled)
}

// Get is the owner-scoped fetch; missing and foreign bookings stay
// distinguishable for the transport layer (404 vs 403).
func (m *LifecycleManager) Get(ctx context.Context, bookingID, userID string) (entity.Booking, error) {
	booking, err := m.load(ctx, bookingID)
	if err != nil {
		return entity.Booking{}, err
	}

	if booking.UserID != userID {
		return entity.Booking{}, entity.ErrUnauthorized
	}

	return booking, nil
}

func (m *LifecycleManager) ListByUser(ctx context.Context, userID string, limit, offset int, status entity.BookingStatus) ([]entity.Booking, error) {
	return m.bookings.ListByUser(ctx, userID, limit, offset, status)
}

// release returns every snapshot ticket to the pool and finalizes the
// booking. The ticket release is unconditional: the booking record is the
// authoritative owner at this point, unlike reservation-time rollback.
func (m *LifecycleManager) release(ctx context.Context, booking entity.Booking, status entity.BookingStatus) error {
	for _, ticket := range booking.Tickets {
		if err := m.tickets.Release(ctx, booking.EventID, ticket.TicketID); err != nil {
			log.FromContext(ctx).WithError(err).
				WithField("ticket_id", ticket.TicketID).
				Error("could not release ticket")
		}
	}

	if err := m.bookings.UpdateStatus(ctx, booking.BookingID, status); err != nil {
		return fmt.Errorf("could not update booking status: %w", err)
	}

	if err := m.cache.Delete(ctx, bookingCacheKey(booking.BookingID)); err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not invalidate booking cache")
	}
	if err := m.cache.Delete(ctx, countCacheKey(booking.UserID)); err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not invalidate active bookings count cache")
	}

	return nil
}

// load reads cache-then-store; only active bookings are (re)cached so a
// terminal status can never be shadowed by a stale entry.
func (m *LifecycleManager) load(ctx context.Context, bookingID string) (entity.Booking, error) {
	var booking entity.Booking
	hit, err := m.cache.Get(ctx, bookingCacheKey(bookingID), &booking)
	if err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not read booking from cache")
	}
	if hit && err == nil {
		return booking, nil
	}

	booking, err = m.bookings.Get(ctx, bookingID)
	if err != nil {
		return entity.Booking{}, err
	}

	if booking.Status == entity.BookingStatusReserved || booking.Status == entity.BookingStatusProcessing {
		m.cacheBooking(ctx, booking)
	}

	return booking, nil
}

func (m *LifecycleManager) cacheBooking(ctx context.Context, booking entity.Booking) {
	ttl := bookingCacheTTL
	if booking.Status == entity.BookingStatusReserved {
		// cache no longer than the remaining reservation window
		ttl = time.Until(booking.ReservedUntil)
		if ttl <= 0 {
			return
		}
	}

	if err := m.cache.Set(ctx, bookingCacheKey(booking.BookingID), booking, ttl); err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not cache booking")
	}
}
