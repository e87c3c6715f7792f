package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"boxoffice/entity"
	"boxoffice/metrics"
)

type EventsRepository interface {
	Get(ctx context.Context, eventID string) (entity.Event, error)
}

// Orchestrator coordinates a reservation request: quota gate, event lock,
// per-tier reservation with all-or-nothing rollback, booking creation and
// queue hand-off.
type Orchestrator struct {
	events    EventsRepository
	quota     *QuotaEnforcer
	reserver  *TicketReserver
	lifecycle *LifecycleManager
	locker    Locker
	cache     Cache
}

func NewOrchestrator(
	events EventsRepository,
	quota *QuotaEnforcer,
	reserver *TicketReserver,
	lifecycle *LifecycleManager,
	locker Locker,
	cache Cache,
) *Orchestrator {
	return &Orchestrator{
		events:    events,
		quota:     quota,
		reserver:  reserver,
		lifecycle: lifecycle,
		locker:    locker,
		cache:     cache,
	}
}

// ReserveTickets reserves every requested tier or nothing at all.
func (o *Orchestrator) ReserveTickets(ctx context.Context, userID, eventID string, requests []entity.TierRequest) (entity.Booking, error) {
	outcome := "error"
	defer func() {
		metrics.ReservationAttempts.WithLabelValues(outcome).Inc()
	}()

	totalRequested, err := validateReservation(userID, eventID, requests)
	if err != nil {
		outcome = "invalid"
		return entity.Booking{}, err
	}

	event, err := o.getEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			outcome = "event_unavailable"
			return entity.Booking{}, fmt.Errorf("%w: %s", entity.ErrEventNotAvailable, eventID)
		}
		return entity.Booking{}, err
	}
	if event.Status != entity.EventStatusActive {
		outcome = "event_unavailable"
		return entity.Booking{}, fmt.Errorf("%w: event is %s", entity.ErrEventNotAvailable, event.Status)
	}

	// Quota is checked before any ticket mutation. The cached count may be
	// stale by one in-flight request; that imprecision is accepted.
	activeCount, err := o.quota.ActiveCount(ctx, userID)
	if err != nil {
		return entity.Booking{}, err
	}
	if activeCount+totalRequested > MaxTicketsPerUser {
		outcome = "quota_exceeded"
		return entity.Booking{}, fmt.Errorf("%w: maximum %d tickets per user", entity.ErrQuotaExceeded, MaxTicketsPerUser)
	}

	// The lock serializes reservations for one event to cut rollback
	// thrash; reservations for different events proceed in parallel.
	release, err := o.locker.Acquire(ctx, eventLockKey(eventID), lockLease, lockWait)
	if err != nil {
		if errors.Is(err, entity.ErrLockNotAcquired) {
			outcome = "lock_timeout"
		}
		return entity.Booking{}, err
	}
	defer func() {
		if err := release(ctx); err != nil {
			log.FromContext(ctx).WithError(err).Warn("could not release event lock")
		}
	}()

	var reserved []entity.ReservedTicket
	for _, request := range requests {
		tickets, err := o.reserver.Reserve(ctx, eventID, request.Tier, request.Quantity, userID)
		if err != nil {
			// roll back every tier already reserved in this request,
			// not just the failing one
			o.reserver.Rollback(ctx, eventID, userID, reserved)

			if errors.Is(err, entity.ErrNoAvailableTickets) {
				outcome = "no_tickets"
			}
			return entity.Booking{}, err
		}
		reserved = append(reserved, tickets...)
	}

	booking, err := o.lifecycle.Create(ctx, userID, eventID, reserved)
	if err != nil {
		o.reserver.Rollback(ctx, eventID, userID, reserved)
		return entity.Booking{}, err
	}

	outcome = "reserved"
	return booking, nil
}

func validateReservation(userID, eventID string, requests []entity.TierRequest) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", entity.ErrValidation)
	}
	if eventID == "" {
		return 0, fmt.Errorf("%w: event id is required", entity.ErrValidation)
	}
	if len(requests) == 0 {
		return 0, fmt.Errorf("%w: at least one tier request is required", entity.ErrValidation)
	}

	total := 0
	for _, request := range requests {
		if request.Tier == "" {
			return 0, fmt.Errorf("%w: tier is required", entity.ErrValidation)
		}
		if request.Quantity < 1 {
			return 0, fmt.Errorf("%w: quantity must be positive", entity.ErrValidation)
		}
		total += request.Quantity
	}

	return total, nil
}

// getEvent reads through the event cache (events change rarely; 5 minute
// staleness is acceptable for the active-status gate).
func (o *Orchestrator) getEvent(ctx context.Context, eventID string) (entity.Event, error) {
	var event entity.Event
	hit, err := o.cache.Get(ctx, eventCacheKey(eventID), &event)
	if err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not read event from cache")
	}
	if hit && err == nil {
		return event, nil
	}

	event, err = o.events.Get(ctx, eventID)
	if err != nil {
		return entity.Event{}, err
	}

	if err := o.cache.Set(ctx, eventCacheKey(eventID), event, eventCacheTTL); err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not cache event")
	}

	return event, nil
}
