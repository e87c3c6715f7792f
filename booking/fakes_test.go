package booking_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"boxoffice/entity"
)

// The fakes below mimic the conditional-write semantics of the Postgres
// repositories so the reservation protocol can be exercised concurrently
// without a database.

type fakeTicketsRepo struct {
	mu      sync.Mutex
	tickets map[string]*entity.Ticket

	// onReserve runs inside Reserve before the status check, letting a test
	// steal a ticket between FindAvailable and the conditional write.
	onReserve func(repo *fakeTicketsRepo, ticketID string)
}

func newFakeTicketsRepo(tickets ...entity.Ticket) *fakeTicketsRepo {
	repo := &fakeTicketsRepo{tickets: map[string]*entity.Ticket{}}
	for i := range tickets {
		t := tickets[i]
		if t.Status == "" {
			t.Status = entity.TicketStatusAvailable
		}
		repo.tickets[t.EventID+"/"+t.TicketID] = &t
	}
	return repo
}

func (f *fakeTicketsRepo) FindAvailable(_ context.Context, eventID, tier string, limit int) ([]entity.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []entity.Ticket
	for _, t := range f.tickets {
		if t.EventID == eventID && t.Tier == tier && t.Status == entity.TicketStatusAvailable {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TicketID < result[j].TicketID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeTicketsRepo) Reserve(_ context.Context, eventID, ticketID, userID string, until time.Time) error {
	if f.onReserve != nil {
		f.onReserve(f, ticketID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[eventID+"/"+ticketID]
	if !ok || t.Status != entity.TicketStatusAvailable {
		return entity.ErrNoAvailableTickets
	}

	t.Status = entity.TicketStatusReserved
	t.ReservedBy = &userID
	t.ReservedUntil = &until
	return nil
}

func (f *fakeTicketsRepo) ReleaseIfReservedBy(_ context.Context, eventID, ticketID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[eventID+"/"+ticketID]
	if !ok {
		return nil
	}
	if t.Status == entity.TicketStatusReserved && t.ReservedBy != nil && *t.ReservedBy == userID {
		t.Status = entity.TicketStatusAvailable
		t.ReservedBy = nil
		t.ReservedUntil = nil
	}
	return nil
}

func (f *fakeTicketsRepo) Release(_ context.Context, eventID, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[eventID+"/"+ticketID]
	if !ok {
		return nil
	}
	t.Status = entity.TicketStatusAvailable
	t.ReservedBy = nil
	t.ReservedUntil = nil
	return nil
}

func (f *fakeTicketsRepo) statusOf(eventID, ticketID string) entity.TicketStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[eventID+"/"+ticketID]
	if !ok {
		return ""
	}
	return t.Status
}

func (f *fakeTicketsRepo) availableCount(eventID, tier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, t := range f.tickets {
		if t.EventID == eventID && t.Tier == tier && t.Status == entity.TicketStatusAvailable {
			count++
		}
	}
	return count
}

type fakeBookingsRepo struct {
	mu       sync.Mutex
	bookings map[string]entity.Booking
	storeErr error
}

func newFakeBookingsRepo() *fakeBookingsRepo {
	return &fakeBookingsRepo{bookings: map[string]entity.Booking{}}
}

func (f *fakeBookingsRepo) Store(_ context.Context, booking entity.Booking) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[booking.BookingID] = booking
	return nil
}

func (f *fakeBookingsRepo) Get(_ context.Context, bookingID string) (entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[bookingID]
	if !ok {
		return entity.Booking{}, entity.ErrNotFound
	}
	return booking, nil
}

func (f *fakeBookingsRepo) UpdateStatus(_ context.Context, bookingID string, status entity.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	booking, ok := f.bookings[bookingID]
	if !ok {
		return entity.ErrNotFound
	}
	booking.Status = status
	booking.UpdatedAt = time.Now().UTC()
	f.bookings[bookingID] = booking
	return nil
}

func (f *fakeBookingsRepo) ListByUser(_ context.Context, userID string, limit, offset int, status entity.BookingStatus) ([]entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []entity.Booking
	for _, b := range f.bookings {
		if b.UserID != userID {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeBookingsRepo) CountActive(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, b := range f.bookings {
		if b.UserID == userID && b.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string, dest any) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = data
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

type fakeLocker struct {
	mu          sync.Mutex
	held        map[string]bool
	acquired    int
	released    int
	failAcquire bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, _, wait time.Duration) (func(context.Context) error, error) {
	if l.failAcquire {
		return nil, fmt.Errorf("%w: %s", entity.ErrLockNotAcquired, key)
	}

	deadline := time.Now().Add(wait)
	for {
		l.mu.Lock()
		if !l.held[key] {
			l.held[key] = true
			l.acquired++
			l.mu.Unlock()
			break
		}
		l.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", entity.ErrLockNotAcquired, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held[key] = false
		l.released++
		return nil
	}
	return release, nil
}

func (l *fakeLocker) balanced() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired == l.released
}

type fakeEventsRepo struct {
	events map[string]entity.Event
}

func newFakeEventsRepo(events ...entity.Event) *fakeEventsRepo {
	repo := &fakeEventsRepo{events: map[string]entity.Event{}}
	for _, e := range events {
		repo.events[e.EventID] = e
	}
	return repo
}

func (f *fakeEventsRepo) Get(_ context.Context, eventID string) (entity.Event, error) {
	event, ok := f.events[eventID]
	if !ok {
		return entity.Event{}, entity.ErrNotFound
	}
	return event, nil
}

type fakePaymentPublisher struct {
	mu         sync.Mutex
	published  []entity.PaymentMessage
	publishErr error
}

func (f *fakePaymentPublisher) PublishPayment(_ context.Context, msg entity.PaymentMessage) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

var errStoreDown = errors.New("store is down")
