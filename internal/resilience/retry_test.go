package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("503"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("still down"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, "still down", err.Error())
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{Attempts: 5, Backoff: time.Hour, MaxBackoff: time.Hour}
	p.OnRetry = func(int, error) { cancel() }

	err := Do(ctx, p, func(context.Context) error {
		calls++
		return NewTransientError(errors.New("timeout"), 0)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomRetryable(t *testing.T) {
	calls := 0
	p := fastPolicy(3)
	p.Retryable = func(error) bool { return true }
	_ = Do(context.Background(), p, func(context.Context) error {
		calls++
		return errors.New("anything")
	})
	assert.Equal(t, 3, calls)
}

func TestDoVal(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewTransientError(errors.New("flaky"), 0)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = DoVal(context.Background(), fastPolicy(1), func(context.Context) (int, error) {
		return 7, errors.New("nope")
	})
	require.Error(t, err)
	assert.Zero(t, v)
}

func TestNewPolicy(t *testing.T) {
	p := NewPolicy(5, 100)
	assert.Equal(t, 5, p.Attempts)
	assert.Equal(t, 100*time.Millisecond, p.Backoff)

	d := NewPolicy(0, 0)
	assert.Equal(t, DefaultPolicy().Attempts, d.Attempts)
	assert.Equal(t, DefaultPolicy().Backoff, d.Backoff)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{Backoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.delay(0))
	assert.Equal(t, 200*time.Millisecond, p.delay(1))
	assert.Equal(t, 350*time.Millisecond, p.delay(2))

	p.Jitter = 0.5
	for range 50 {
		d := p.delay(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
