package worker

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retrying a failed sweep.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	// Default: 1s
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	// Default: 30s
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the wait after each attempt.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the fraction of the wait to randomize (0.0 to 1.0).
	// Default: 0.2
	JitterFraction float64
}

// DefaultRetryConfig returns the default sweep retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.2,
	}
}

// retryFunc is told about each failed attempt that will be retried.
type retryFunc func(attempt int, err error, wait time.Duration)

// retryWithBackoff executes the operation with exponential backoff on failure.
// It respects context cancellation and returns the last error if all attempts fail.
func retryWithBackoff(ctx context.Context, config RetryConfig, operation func() error, onRetry retryFunc) error {
	var lastErr error
	backoff := config.InitialBackoff
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if !IsRetryableError(lastErr) || attempt >= attempts {
			return lastErr
		}

		wait := jitter(backoff, config.JitterFraction)
		if onRetry != nil {
			onRetry(attempt, lastErr, wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return lastErr
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	j := time.Duration(float64(d) * fraction * (rand.Float64()*2 - 1))
	if d+j < 0 {
		return d
	}
	return d + j
}

// IsRetryableError determines if a sweep error is worth retrying.
// Context errors mean the caller gave up; everything else is a storage
// failure that may be transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
