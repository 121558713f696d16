package worker

import (
	"log/slog"
	"time"

	"github.com/jdziat/simple-async-jobs/pkg/schedule"
	"github.com/jdziat/simple-async-jobs/pkg/sweep"
)

// DefaultInterval separates sweeps when no schedule is configured.
const DefaultInterval = time.Minute

// WorkerOption configures a Worker.
type WorkerOption interface {
	ApplyWorker(*WorkerConfig)
}

type workerOptionFunc func(*WorkerConfig)

func (f workerOptionFunc) ApplyWorker(c *WorkerConfig) { f(c) }

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	Schedule   schedule.Schedule
	RunOnStart bool
	SweepRetry *RetryConfig
	OnSweep    []func(*sweep.Report, error)
	Logger     *slog.Logger
}

// Interval runs a sweep every d. Non-positive durations are ignored.
func Interval(d time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		if d > 0 {
			c.Schedule = schedule.Every(d)
		}
	})
}

// WithSchedule sets when sweeps run.
func WithSchedule(s schedule.Schedule) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		if s != nil {
			c.Schedule = s
		}
	})
}

// RunOnStart controls whether Start sweeps immediately before waiting for
// the first scheduled instant.
func RunOnStart(enabled bool) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.RunOnStart = enabled
	})
}

// WithSweepRetry sets the retry policy for failed sweeps.
func WithSweepRetry(cfg RetryConfig) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.SweepRetry = &cfg
	})
}

// WithRetryAttempts sets the number of attempts per sweep, keeping the
// default backoff.
func WithRetryAttempts(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		cfg := DefaultRetryConfig()
		if c.SweepRetry != nil {
			cfg = *c.SweepRetry
		}
		cfg.MaxAttempts = n
		c.SweepRetry = &cfg
	})
}

// DisableRetry makes a failed sweep wait for the next scheduled instant.
func DisableRetry() WorkerOption {
	return WithRetryAttempts(1)
}

// OnSweep registers a callback invoked after every sweep attempt sequence.
func OnSweep(fn func(*sweep.Report, error)) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		if fn != nil {
			c.OnSweep = append(c.OnSweep, fn)
		}
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		if l != nil {
			c.Logger = l
		}
	})
}
