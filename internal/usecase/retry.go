// File: internal/usecase/retry.go
package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"content-studio/internal/domain/ports/adapter"
	"content-studio/internal/infra/metrics"
)

// RetryPolicy: attempt k (k >= 1) waits 2^k * BaseDelay, plus uniform
// jitter in [0, MaxJitter) when Jitter is set.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      bool
	MaxJitter   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Jitter: true, MaxJitter: 250 * time.Millisecond}
}

// Delay is the backoff before attempt k, without jitter.
func (p RetryPolicy) Delay(k int) time.Duration {
	if k < 1 {
		return 0
	}
	if k > 20 {
		k = 20
	}
	return p.BaseDelay * time.Duration(1<<k)
}

// Retrier opens provider streams under a RetryPolicy. It does not touch the
// concurrency limiter; the caller holds one permit across all attempts.
type Retrier struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

func NewRetrier(p RetryPolicy) *Retrier {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	return &Retrier{policy: p, sleep: sleepCtx, jitter: randJitter}
}

// RetryNotice is passed to the onRetry hook before each backoff wait.
type RetryNotice struct {
	Attempt int // attempt about to be made, 1-based after the first
	Delay   time.Duration
	Err     error
}

// Call opens a stream, retrying retryable provider errors. Fatal errors and
// the last retryable error are returned unchanged. Cancellation during a
// backoff wait returns ctx.Err().
func (r *Retrier) Call(ctx context.Context, p adapter.GenerationProvider, req adapter.GenerateRequest, onRetry func(RetryNotice)) (adapter.ProviderStream, error) {
	for attempt := 0; ; attempt++ {
		stream, err := p.GenerateStream(ctx, req)
		if err == nil {
			metrics.IncProviderCall(p.Name(), "ok")
			return stream, nil
		}
		if !isRetryable(err) {
			metrics.IncProviderCall(p.Name(), "fatal")
			return nil, err
		}
		metrics.IncProviderCall(p.Name(), "retryable")
		if attempt+1 >= r.policy.MaxAttempts {
			return nil, err
		}

		delay := r.policy.Delay(attempt + 1)
		if r.policy.Jitter && r.policy.MaxJitter > 0 {
			delay += r.jitter(r.policy.MaxJitter)
		}
		if onRetry != nil {
			onRetry(RetryNotice{Attempt: attempt + 1, Delay: delay, Err: err})
		}
		metrics.IncProviderRetry(p.Name())
		if serr := r.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

func isRetryable(err error) bool {
	var pe *adapter.ProviderError
	return errors.As(err, &pe) && pe.Retryable()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randJitter(max time.Duration) time.Duration {
	return rand.N(max)
}
