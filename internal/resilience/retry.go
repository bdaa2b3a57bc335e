// Package resilience retries outbound calls that fail for transient reasons.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry attempts and exponential backoff with jitter.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the delay before the first retry; later delays double up to
	// MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64

	// Retryable overrides IsTransient when set.
	Retryable func(err error) bool
	// OnRetry runs before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits webhook delivery: three tries, 250ms doubling backoff.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    250 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		Jitter:     0.2,
	}
}

// NewPolicy builds a policy from config values; non-positive values keep the
// defaults.
func NewPolicy(attempts, backoffMS int) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if backoffMS > 0 {
		p.Backoff = time.Duration(backoffMS) * time.Millisecond
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that produce a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var err error
	for attempt := 1; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= p.Attempts {
			return zero, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(p.delay(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = d.Backoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// delay is Backoff * 2^n, capped at MaxBackoff, with jitter applied.
func (p Policy) delay(n int) time.Duration {
	d := math.Min(float64(p.Backoff)*math.Pow(2, float64(n)), float64(p.MaxBackoff))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(0, d))
}

// LogRetries returns an OnRetry callback that logs each retry.
func LogRetries(operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
