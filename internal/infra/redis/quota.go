package redis

import (
	"context"
	"fmt"
	"time"

	"content-studio/internal/domain/model"
	"content-studio/internal/domain/ports/adapter"
)

var _ adapter.QuotaPolicy = (*QuotaPolicy)(nil)

// DefaultQuotaKey holds the limit for kinds without their own entry.
const DefaultQuotaKey = "default"

// QuotaPolicy counts jobs per subject and kind in a fixed window that starts
// with the first job. A limit of zero or less means unlimited.
type QuotaPolicy struct {
	client RedisClient
	window time.Duration
	limits map[string]int
}

func NewQuotaPolicy(client RedisClient, window time.Duration, limits map[string]int) *QuotaPolicy {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &QuotaPolicy{client: client, window: window, limits: limits}
}

func (q *QuotaPolicy) limit(kind model.JobKind) int {
	if n, ok := q.limits[string(kind)]; ok {
		return n
	}
	return q.limits[DefaultQuotaKey]
}

func (q *QuotaPolicy) Consume(ctx context.Context, subject string, kind model.JobKind) (bool, error) {
	limit := q.limit(kind)
	if limit <= 0 {
		return true, nil
	}
	key := QuotaKey(subject, kind)
	count, err := q.client.IncrWindow(ctx, key, q.window)
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

// Refund gives back one unit taken by Consume for a job that was never
// created. Unlimited kinds have nothing to give back.
func (q *QuotaPolicy) Refund(ctx context.Context, subject string, kind model.JobKind) error {
	if q.limit(kind) <= 0 {
		return nil
	}
	key := QuotaKey(subject, kind)
	n, err := q.client.Decr(ctx, key)
	if err != nil {
		return err
	}
	// the window expired between Consume and Refund; DECR made a fresh key
	if n < 0 {
		return q.client.Del(ctx, key)
	}
	return nil
}

func QuotaKey(subject string, kind model.JobKind) string {
	return fmt.Sprintf("quota:%s:%s", kind, subject)
}
