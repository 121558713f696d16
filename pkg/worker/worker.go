package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jdziat/simple-async-jobs/pkg/schedule"
	"github.com/jdziat/simple-async-jobs/pkg/sweep"
)

// ErrAlreadyRunning is returned by Start when the worker is already started.
var ErrAlreadyRunning = errors.New("jobs: worker already running")

// Worker triggers sweeps on a schedule. Sweeps never overlap.
type Worker struct {
	sweeper *sweep.Sweeper
	config  WorkerConfig
	logger  *slog.Logger
	running atomic.Bool
}

// NewWorker creates a new worker driving the given sweeper.
func NewWorker(s *sweep.Sweeper, opts ...WorkerOption) *Worker {
	config := WorkerConfig{
		Schedule:   schedule.Every(DefaultInterval),
		RunOnStart: true,
	}

	for _, opt := range opts {
		opt.ApplyWorker(&config)
	}

	if config.SweepRetry == nil {
		defaultCfg := DefaultRetryConfig()
		config.SweepRetry = &defaultCfg
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		sweeper: s,
		config:  config,
		logger:  logger,
	}
}

// Config returns the worker configuration.
func (w *Worker) Config() WorkerConfig {
	return w.config
}

// Start runs sweeps until the context is cancelled. Sweep failures are
// logged and reported to OnSweep callbacks; they do not stop the worker.
func (w *Worker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	w.logger.Info("worker started", "schedule", describe(w.config.Schedule))

	if w.config.RunOnStart {
		_, _ = w.RunOnce(ctx)
	}

	for {
		now := time.Now()
		wait := w.config.Schedule.Next(now).Sub(now)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("worker stopped")
			return ctx.Err()
		case <-timer.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep, retrying storage failures with backoff.
func (w *Worker) RunOnce(ctx context.Context) (*sweep.Report, error) {
	var report *sweep.Report
	err := retryWithBackoff(ctx, *w.config.SweepRetry, func() error {
		var runErr error
		report, runErr = w.sweeper.Run(ctx)
		return runErr
	}, func(attempt int, err error, wait time.Duration) {
		w.logger.Warn("sweep failed, retrying", "attempt", attempt, "error", err, "backoff", wait)
	})

	if err != nil && IsRetryableError(err) {
		w.logger.Error("sweep failed after retries", "error", err)
	}

	for _, fn := range w.config.OnSweep {
		fn(report, err)
	}
	return report, err
}

func describe(s schedule.Schedule) string {
	if str, ok := s.(interface{ String() string }); ok {
		return str.String()
	}
	return "custom"
}
