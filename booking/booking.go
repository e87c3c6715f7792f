// Package booking is the reservation core: quota enforcement, per-ticket
// conditional reservation with rollback, the booking state machine and the
// top-level orchestration under the per-event lock.
package booking

import (
	"context"
	"time"
)

const (
	// ReservationWindow is how long reserved tickets are held before a
	// booking must be confirmed.
	ReservationWindow = 5 * time.Minute

	// MaxTicketsPerUser caps a user's simultaneously active tickets.
	MaxTicketsPerUser = 6

	lockLease = 30 * time.Second
	lockWait  = 30 * time.Second

	eventCacheTTL   = 5 * time.Minute
	bookingCacheTTL = 5 * time.Minute
	countCacheTTL   = time.Minute

	// purgeRetention is added past the reservation deadline before the
	// store may physically delete a booking.
	purgeRetention = time.Hour
)

func eventCacheKey(eventID string) string { return "event:" + eventID }

func eventLockKey(eventID string) string { return "booking_lock:" + eventID }

func bookingCacheKey(bookingID string) string { return "booking:" + bookingID }

func countCacheKey(userID string) string { return "user_bookings_count:" + userID }

// Cache is the accelerator backing quota counts and booking/event reads.
// All code paths must remain correct when it is empty or stale.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Locker is the per-event mutual-exclusion gate. Release must be invoked on
// every exit path of the critical section.
type Locker interface {
	Acquire(ctx context.Context, key string, lease, wait time.Duration) (func(context.Context) error, error)
}
