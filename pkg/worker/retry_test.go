package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.0, // No jitter for predictable testing
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.Equal(t, 0.2, cfg.JitterFraction)
}

func TestRetryWithBackoff_SuccessOnFirstAttempt(t *testing.T) {
	var attempts int

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	var attempts int
	var retried []int

	err := retryWithBackoff(context.Background(), fastRetry(5), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		retried = append(retried, attempt)
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	var attempts int
	expectedErr := errors.New("persistent error")

	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		attempts++
		return expectedErr
	}, nil)

	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ZeroAttemptsRunsOnce(t *testing.T) {
	var attempts int

	err := retryWithBackoff(context.Background(), fastRetry(0), func() error {
		attempts++
		return errors.New("fail")
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_RespectsContextCancellation(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       10,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	var attempts atomic.Int32

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := retryWithBackoff(ctx, cfg, func() error {
		attempts.Add(1)
		return errors.New("keep failing")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, attempts.Load(), int32(1))
}

func TestRetryWithBackoff_StopsOnContextError(t *testing.T) {
	var attempts int

	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return fmt.Errorf("jobs: select scheduled jobs: %w", context.Canceled)
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts) // Should not retry on context errors
}

func TestRetryWithBackoff_BackoffGrowsExponentially(t *testing.T) {
	cfg := fastRetry(4)
	cfg.MaxBackoff = time.Second

	var waits []time.Duration
	err := retryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("fail")
	}, func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	})

	assert.Error(t, err)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}, waits)
}

func TestRetryWithBackoff_RespectsMaxBackoff(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        60 * time.Millisecond, // Very low max
		BackoffMultiplier: 10.0,                  // Aggressive multiplier
	}

	var waits []time.Duration
	err := retryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("fail")
	}, func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	})

	assert.Error(t, err)
	require.Len(t, waits, 4)
	for _, w := range waits[1:] {
		assert.Equal(t, 60*time.Millisecond, w)
	}
}

func TestJitter(t *testing.T) {
	assert.Equal(t, time.Second, jitter(time.Second, 0))

	for i := 0; i < 100; i++ {
		got := jitter(time.Second, 0.5)
		assert.GreaterOrEqual(t, got, 500*time.Millisecond)
		assert.LessOrEqual(t, got, 1500*time.Millisecond)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"context.Canceled", context.Canceled, false},
		{"context.DeadlineExceeded", context.DeadlineExceeded, false},
		{"wrapped context.Canceled", fmt.Errorf("claim: %w", context.Canceled), false},
		{"storage error", errors.New("database is locked"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryableError(tt.err))
		})
	}
}
