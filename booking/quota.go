package booking

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// ActiveBookingsCounter is the authoritative source behind the cached
// per-user active-booking count.
type ActiveBookingsCounter interface {
	CountActive(ctx context.Context, userID string) (int, error)
}

// QuotaEnforcer reads a cached count of a user's active bookings. Staleness
// within the cache window is accepted: a user may transiently exceed or
// evade the quota by one in-flight request.
type QuotaEnforcer struct {
	bookings ActiveBookingsCounter
	cache    Cache
}

func NewQuotaEnforcer(bookings ActiveBookingsCounter, cache Cache) *QuotaEnforcer {
	return &QuotaEnforcer{
		bookings: bookings,
		cache:    cache,
	}
}

func (q *QuotaEnforcer) ActiveCount(ctx context.Context, userID string) (int, error) {
	var count int
	hit, err := q.cache.Get(ctx, countCacheKey(userID), &count)
	if err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not read active bookings count from cache")
	}
	if hit && err == nil {
		return count, nil
	}

	count, err = q.bookings.CountActive(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("could not count active bookings: %w", err)
	}

	if err := q.cache.Set(ctx, countCacheKey(userID), count, countCacheTTL); err != nil {
		log.FromContext(ctx).WithError(err).Warn("could not cache active bookings count")
	}

	return count, nil
}
