package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alphavault/fundd/internal/domain"
)

// releaseLua deletes the lock key only when its value still matches the
// holder's token, so an expired lock reacquired by another replica is never
// released by the old holder.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

const releaseTimeout = 5 * time.Second

// LockManager implements domain.LockManager with SET NX plus a token-checked
// Lua release. Keepers use it so only one daemon replica runs fee collection
// and rebalancing per cycle.
type LockManager struct {
	rdb     *redis.Client
	release *redis.Script
}

// NewLockManager creates a LockManager on the shared client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:     c.raw(),
		release: redis.NewScript(releaseLua),
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire takes the lock for key with the given TTL. It returns
// domain.ErrLockHeld when another holder has it. The returned unlock func is
// idempotent and uses a detached context so release still works after the
// caller's context is cancelled.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		relCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		_ = lm.release.Run(relCtx, lm.rdb, []string{lk}, token).Err()
	}
	return unlock, nil
}

var _ domain.LockManager = (*LockManager)(nil)
