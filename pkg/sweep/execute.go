package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/jdziat/simple-async-jobs/pkg/core"
	"github.com/jdziat/simple-async-jobs/pkg/jobctx"
	"github.com/jdziat/simple-async-jobs/pkg/security"
)

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSucceeded
	outcomeFailed
)

// execute claims, runs and finalises a single job. The returned error is
// non-nil only for storage failures.
func (s *Sweeper) execute(ctx context.Context, sweepID string, job *core.Job) (outcome, error) {
	store := s.queue.Storage()
	logger := s.logger.With("sweep_id", sweepID, "job_id", job.ID, "job_name", job.Name)

	claimedAt := s.clock.Now()
	claimed, err := store.ClaimJob(ctx, job.ID, sweepID, claimedAt)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("jobs: claim job %d: %w", job.ID, err)
	}
	if !claimed {
		logger.Debug("job no longer pending, skipping")
		return outcomeSkipped, nil
	}
	job.ClaimedBy = sweepID
	job.ClaimedAt = &claimedAt

	if s.config.Output != nil {
		fmt.Fprintf(s.config.Output, "%d: %s\n", job.ID, job)
	}
	logger.Info("executing job", "job", job.String())

	startTime := time.Now()
	jobCtx := jobctx.WithJob(ctx, job, sweepID)

	s.queue.CallStartHooks(ctx, job)
	s.queue.Emit(&core.JobStarted{Job: job, SweepID: sweepID, Timestamp: claimedAt})

	trace, workErr := s.run(jobCtx, job)

	if core.IsStoreFailure(workErr) {
		return outcomeSkipped, s.abandon(ctx, logger, job, sweepID, workErr)
	}

	if workErr != nil {
		jobErr := &core.JobError{
			JobID:     job.ID,
			Exception: security.SanitizeErrorMessage(workErr.Error()),
			Traceback: security.SanitizeTraceback(trace),
		}
		if err := store.SaveJobError(ctx, jobErr); err != nil {
			return outcomeFailed, fmt.Errorf("jobs: record error for job %d: %w", job.ID, err)
		}
	}

	executedAt := s.clock.Now()
	if err := store.MarkExecuted(ctx, job.ID, sweepID, executedAt); err != nil {
		if !errors.Is(err, core.ErrClaimLost) {
			return outcomeFailed, fmt.Errorf("jobs: mark job %d executed: %w", job.ID, err)
		}
		// The claim was released as stale while the work ran.
		logger.Warn("claim lost before job was marked executed")
	}
	job.Executed = &executedAt

	if workErr != nil {
		logger.Warn("job failed", "error", workErr, "duration", time.Since(startTime))
		s.queue.CallFailHooks(ctx, job, workErr)
		s.queue.Emit(&core.JobFailed{Job: job, Error: workErr, Timestamp: executedAt})
		return outcomeFailed, nil
	}

	logger.Debug("job completed", "duration", time.Since(startTime))
	s.queue.CallCompleteHooks(ctx, job)
	s.queue.Emit(&core.JobCompleted{Job: job, Duration: time.Since(startTime), Timestamp: executedAt})
	return outcomeSucceeded, nil
}

// abandon leaves a job pending after its work hit a storage failure so the
// next sweep runs it again. The returned error stops the current sweep.
func (s *Sweeper) abandon(ctx context.Context, logger *slog.Logger, job *core.Job, sweepID string, workErr error) error {
	logger.Error("job hit a storage failure, leaving it pending", "error", workErr)

	if err := s.queue.Storage().ReleaseClaim(ctx, job.ID, sweepID); err != nil {
		// The claim stays until stale claims are released.
		logger.Error("failed to release claim", "error", err)
	} else {
		job.ClaimedBy = ""
		job.ClaimedAt = nil
	}

	s.queue.CallFailHooks(ctx, job, workErr)
	s.queue.Emit(&core.JobFailed{Job: job, Error: workErr, Timestamp: s.clock.Now()})
	return fmt.Errorf("jobs: job %d: %w", job.ID, workErr)
}

// run resolves and invokes the handler. A panic is converted into an error
// and the stack at the point of the panic is returned as the trace.
func (s *Sweeper) run(ctx context.Context, job *core.Job) (trace string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			trace = string(debug.Stack())
		}
	}()

	h, err := s.queue.Resolve(job.Name)
	if err != nil {
		return errorTrace(err), err
	}
	if err := h.Execute(ctx, job.Args); err != nil {
		return errorTrace(err), err
	}
	return "", nil
}

// errorTrace renders the wrap chain of err, outermost first.
func errorTrace(err error) string {
	var b strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%T: %s\n", e, e.Error())
	}
	return b.String()
}
