package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"

	"boxoffice/entity"
)

// Locker provides per-key mutual exclusion backed by a Redis lease.
//
// The lease is best effort: it is neither renewed nor fenced, so a critical
// section slower than the lease TTL can keep running while a new holder
// proceeds. Ticket correctness never rests on the lock (the conditional
// writes guarantee it); the lock only reduces rollback thrash under
// contention for one event.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	if rdb == nil {
		panic("redis client is nil")
	}

	return &Locker{rdb: rdb}
}

const acquirePollInterval = 100 * time.Millisecond

// releaseScript deletes the lease only while the caller's token still owns
// it, so a holder that outlived its lease cannot delete a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Acquire blocks until the lease is obtained or wait elapses, polling SetNX.
// It returns a release function that must be called on every exit path.
func (l *Locker) Acquire(ctx context.Context, key string, lease, wait time.Duration) (func(context.Context) error, error) {
	token := shortuuid.New()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, lease).Result()
		if err != nil {
			return nil, fmt.Errorf("could not acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", entity.ErrLockNotAcquired, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("could not release lock %s: %w", key, err)
		}
		return nil
	}

	return release, nil
}
