package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/simple-async-jobs/pkg/core"
	"github.com/jdziat/simple-async-jobs/pkg/queue"
)

// Sweeper runs due jobs from a queue's storage.
type Sweeper struct {
	queue  *queue.Queue
	config Config
	// clock is the queue clock; claim and execution times share it with
	// Enqueue and retention.
	clock  core.Clock
	logger *slog.Logger
}

// Report summarises one sweep.
type Report struct {
	SweepID   string
	StartedAt time.Time
	Duration  time.Duration

	// Released is the number of stale claims returned to pending.
	Released int64

	// Succeeded and Failed hold the ids of executed jobs in execution order.
	Succeeded []uint
	Failed    []uint

	// Skipped holds ids from the snapshot that were no longer pending when
	// the sweep tried to claim them.
	Skipped []uint
}

// Executed returns the number of jobs whose work ran.
func (r *Report) Executed() int {
	return len(r.Succeeded) + len(r.Failed)
}

// New creates a Sweeper for q.
func New(q *queue.Queue, opts ...Option) *Sweeper {
	s := &Sweeper{
		queue:  q,
		clock:  q.Clock(),
		logger: q.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the sweeper configuration.
func (s *Sweeper) Config() Config {
	return s.config
}

// Run performs one sweep. Job failures are recorded and never returned;
// a non-nil error means storage failed and the sweep stopped early. The
// report is returned in both cases.
func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	now := s.clock.Now()
	report := &Report{
		SweepID:   uuid.New().String(),
		StartedAt: now,
	}
	defer func() {
		report.Duration = time.Since(started)
	}()

	logger := s.logger.With("sweep_id", report.SweepID)
	store := s.queue.Storage()

	if s.config.StaleClaimAfter > 0 {
		released, err := store.ReleaseStaleClaims(ctx, now.Add(-s.config.StaleClaimAfter))
		if err != nil {
			return report, fmt.Errorf("jobs: release stale claims: %w", err)
		}
		report.Released = released
		if released > 0 {
			logger.Warn("released stale claims", "count", released)
		}
	}

	// Both lanes are read before anything runs so that jobs created by
	// this sweep wait for the next one.
	scheduled, err := store.DueScheduledJobs(ctx, now, s.config.MaxJobs)
	if err != nil {
		return report, fmt.Errorf("jobs: select scheduled jobs: %w", err)
	}
	unscheduled, err := store.DueUnscheduledJobs(ctx, s.config.MaxJobs)
	if err != nil {
		return report, fmt.Errorf("jobs: select unscheduled jobs: %w", err)
	}

	logger.Debug("sweep started", "scheduled", len(scheduled), "unscheduled", len(unscheduled))

	for _, pass := range [][]*core.Job{scheduled, unscheduled} {
		if err := s.runPass(ctx, report, pass); err != nil {
			logger.Error("sweep aborted", "error", err, "executed", report.Executed())
			return report, err
		}
	}

	logger.Info("sweep finished",
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"skipped", len(report.Skipped),
		"duration", time.Since(started),
	)
	return report, nil
}

func (s *Sweeper) runPass(ctx context.Context, report *Report, jobs []*core.Job) error {
	for _, job := range jobs {
		if s.config.MaxJobs > 0 && report.Executed() >= s.config.MaxJobs {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := s.execute(ctx, report.SweepID, job)
		if err != nil {
			return err
		}
		switch result {
		case outcomeSucceeded:
			report.Succeeded = append(report.Succeeded, job.ID)
		case outcomeFailed:
			report.Failed = append(report.Failed, job.ID)
		default:
			report.Skipped = append(report.Skipped, job.ID)
		}
	}
	return nil
}
