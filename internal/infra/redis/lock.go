// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"content-studio/internal/domain"
)

// Locker hands out expiring leases on a key. The returned token proves
// ownership when releasing.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var _ Locker = (*RedisLocker)(nil)

// RedisLocker is a single-instance SET NX lease. It is good enough for
// keeping periodic jobs from overlapping across replicas, not for fencing.
type RedisLocker struct {
	cli      *redis.Client
	attempts int
	backoff  time.Duration
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli, attempts: 3, backoff: 50 * time.Millisecond}
}

// TryLock returns domain.ErrLockHeld when the key stays taken for every
// attempt. Redis errors are returned as soon as attempts run out.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("lock %s: ttl must be positive: %w", key, domain.ErrInvalidArgument)
	}
	token := uuid.NewString()

	var redisErr error
	for n := 1; ; n++ {
		acquired, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		switch {
		case err != nil:
			redisErr = err
		case acquired:
			return token, nil
		default:
			redisErr = nil
		}
		if n >= l.attempts {
			break
		}
		t := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
	if redisErr != nil {
		return "", fmt.Errorf("lock %s: %w", key, redisErr)
	}
	return "", domain.ErrLockHeld
}

// compare-and-delete so a lease that already expired and was re-taken by
// someone else is left alone.
var releaseScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Unlock releases key when it still holds token; a stale token is a no-op.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.cli, []string{key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	return nil
}
