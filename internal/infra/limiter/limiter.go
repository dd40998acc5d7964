// Package limiter bounds concurrent calls to the generation provider.
// Waiters are served in arrival order.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"content-studio/internal/domain"
	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/infra/metrics"
)

var _ adapter.ConcurrencyLimiter = (*Limiter)(nil)

type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	timeout  time.Duration

	inFlight atomic.Int64
	waiting  atomic.Int64
}

// New creates a limiter with capacity permits. acquireTimeout bounds how long
// Acquire waits; zero waits until ctx is done.
func New(capacity int, acquireTimeout time.Duration) (*Limiter, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("limiter capacity must be >= 1: %w", domain.ErrInvalidArgument)
	}
	if acquireTimeout < 0 {
		acquireTimeout = 0
	}
	metrics.SetLimiterCapacity(capacity)
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		timeout:  acquireTimeout,
	}, nil
}

// Permit is one unit of provider concurrency. Release is safe to call more
// than once; only the first call returns the unit.
type Permit struct {
	l    *Limiter
	once sync.Once
}

func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.l.inFlight.Add(-1)
		p.l.sem.Release(1)
		p.l.publish()
	})
}

// Acquire blocks until a permit is free, ctx is done, or the acquire timeout
// elapses. Timeouts return domain.ErrAcquireTimeout; cancellation returns ctx.Err().
func (l *Limiter) Acquire(ctx context.Context) (adapter.Permit, error) {
	if l.sem.TryAcquire(1) {
		return l.granted(), nil
	}

	l.waiting.Add(1)
	l.publish()
	start := time.Now()

	actx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	err := l.sem.Acquire(actx, 1)

	l.waiting.Add(-1)
	metrics.ObserveLimiterWait(time.Since(start))
	if err != nil {
		l.publish()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.IncLimiterTimeout()
			return nil, fmt.Errorf("waited %s for a provider slot: %w", l.timeout, domain.ErrAcquireTimeout)
		}
		return nil, err
	}
	return l.granted(), nil
}

func (l *Limiter) granted() *Permit {
	l.inFlight.Add(1)
	l.publish()
	return &Permit{l: l}
}

func (l *Limiter) publish() {
	metrics.SetLimiterState(l.InFlight(), l.Waiting())
}

func (l *Limiter) Capacity() int { return l.capacity }

func (l *Limiter) InFlight() int { return int(l.inFlight.Load()) }

func (l *Limiter) Waiting() int { return int(l.waiting.Load()) }
