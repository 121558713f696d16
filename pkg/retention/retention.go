package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdziat/simple-async-jobs/pkg/core"
	"github.com/jdziat/simple-async-jobs/pkg/queue"
	"github.com/jdziat/simple-async-jobs/pkg/schedule"
	"github.com/jdziat/simple-async-jobs/pkg/security"
)

const (
	// JobName is the registered name of the retention job.
	JobName = "jobs.remove_old_jobs"

	// DefaultRetentionDays is used when a run does not specify a window.
	DefaultRetentionDays = 30

	// DefaultInterval separates consecutive retention runs.
	DefaultInterval = 8 * time.Hour
)

// Args are the stored arguments of a retention job.
type Args struct {
	RetentionDays int `json:"retention_days,omitempty"`
}

// Result describes one retention run.
type Result struct {
	RetentionDays int
	Cutoff        time.Time

	JobsDeleted   int64
	ErrorsDeleted int64
	GroupsDeleted int64

	// JobsKept counts old terminal jobs kept because their group is not
	// entirely terminal and past the cutoff.
	JobsKept int

	// Next is the pending instance that will run the following cycle.
	Next        *core.Job
	NextCreated bool
}

// Option configures a Retention.
type Option func(*Retention)

// WithDefaultDays sets the retention window used when a run passes zero.
func WithDefaultDays(days int) Option {
	return func(r *Retention) {
		r.defaultDays = security.ClampRetentionDays(days, DefaultRetentionDays)
	}
}

// WithSchedule sets when the successor of a run is scheduled.
func WithSchedule(s schedule.Schedule) Option {
	return func(r *Retention) {
		if s != nil {
			r.schedule = s
		}
	}
}

// WithLogger sets the logger. Defaults to the queue logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retention) {
		if l != nil {
			r.logger = l
		}
	}
}

// OnResult registers a callback invoked after every successful run.
func OnResult(fn func(*Result)) Option {
	return func(r *Retention) {
		if fn != nil {
			r.observers = append(r.observers, fn)
		}
	}
}

// Retention removes old terminal jobs and reschedules itself.
type Retention struct {
	queue       *queue.Queue
	defaultDays int
	schedule    schedule.Schedule
	logger      *slog.Logger
	observers   []func(*Result)
}

// New creates a Retention bound to q.
func New(q *queue.Queue, opts ...Option) *Retention {
	r := &Retention{
		queue:       q,
		defaultDays: DefaultRetentionDays,
		schedule:    schedule.Every(DefaultInterval),
		logger:      q.Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds the retention handler to JobName on the queue.
func (r *Retention) Register() {
	r.queue.Register(JobName, r.handle)
}

func (r *Retention) handle(ctx context.Context, args Args) error {
	_, err := r.RemoveOldJobs(ctx, args.RetentionDays)
	return err
}

// Days resolves the window for a run: non-positive values fall back to the
// configured default.
func (r *Retention) Days(days int) int {
	return security.ClampRetentionDays(days, r.defaultDays)
}

// RemoveOldJobs deletes terminal jobs whose terminal time is before
// now minus days, deletes groups left without jobs and ensures one pending
// successor is scheduled on the configured schedule. A group without jobs is
// only deleted when this run emptied it or it is older than the cutoff.
//
// Storage errors are returned as core.StoreError so a sweep running the
// retention job leaves it pending and retries it, keeping the cycle alive.
func (r *Retention) RemoveOldJobs(ctx context.Context, days int) (*Result, error) {
	days = r.Days(days)
	now := r.queue.Now()
	store := r.queue.Storage()

	result := &Result{
		RetentionDays: days,
		Cutoff:        now.AddDate(0, 0, -days),
	}

	candidates, err := store.TerminalJobsBefore(ctx, result.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("jobs: load old jobs: %w", core.StoreFailure(err))
	}

	deletable := make([]uint, 0, len(candidates))
	groups := make(map[uint]bool)
	for _, job := range candidates {
		if !isOld(job, result.Cutoff) {
			continue
		}
		if job.GroupID == nil {
			deletable = append(deletable, job.ID)
			continue
		}

		done, seen := groups[*job.GroupID]
		if !seen {
			done, err = r.groupExpired(ctx, *job.GroupID, result.Cutoff)
			if err != nil {
				return nil, err
			}
			groups[*job.GroupID] = done
		}
		if done {
			deletable = append(deletable, job.ID)
		} else {
			result.JobsKept++
		}
	}

	result.JobsDeleted, result.ErrorsDeleted, err = store.DeleteJobs(ctx, deletable)
	if err != nil {
		return nil, fmt.Errorf("jobs: delete old jobs: %w", core.StoreFailure(err))
	}

	emptied := make([]uint, 0, len(groups))
	for id, done := range groups {
		if done {
			emptied = append(emptied, id)
		}
	}
	result.GroupsDeleted, err = store.DeleteEmptyGroups(ctx, emptied, result.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("jobs: delete empty groups: %w", core.StoreFailure(err))
	}

	result.Next, result.NextCreated, err = r.queue.EnsurePending(ctx, JobName,
		Args{RetentionDays: days},
		queue.At(r.schedule.Next(now)),
	)
	if err != nil {
		return nil, fmt.Errorf("jobs: reschedule retention job: %w", core.StoreFailure(err))
	}

	r.logger.Info("old jobs removed",
		"retention_days", days,
		"cutoff", result.Cutoff,
		"jobs_deleted", result.JobsDeleted,
		"errors_deleted", result.ErrorsDeleted,
		"groups_deleted", result.GroupsDeleted,
		"jobs_kept", result.JobsKept,
		"next_job_id", result.Next.ID,
	)
	for _, fn := range r.observers {
		fn(result)
	}
	return result, nil
}

// groupExpired reports whether every member of the group is terminal and
// older than cutoff.
func (r *Retention) groupExpired(ctx context.Context, groupID uint, cutoff time.Time) (bool, error) {
	members, err := r.queue.Storage().GroupJobs(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("jobs: load group %d: %w", groupID, core.StoreFailure(err))
	}
	for _, m := range members {
		if !isOld(m, cutoff) {
			return false, nil
		}
	}
	return true, nil
}

func isOld(job *core.Job, cutoff time.Time) bool {
	at := job.TerminatedAt()
	return at != nil && at.Before(cutoff)
}

// Ensure creates a due-now retention job unless a pending one already exists.
// Call it at startup so a fresh database enters the retention cycle.
func (r *Retention) Ensure(ctx context.Context, days int) (*core.Job, bool, error) {
	job, created, err := r.queue.EnsurePending(ctx, JobName,
		Args{RetentionDays: r.Days(days)},
		queue.At(r.queue.Now()),
	)
	if err != nil {
		return nil, false, err
	}
	if created {
		r.logger.Info("retention job scheduled", "job_id", job.ID, "retention_days", r.Days(days))
	}
	return job, created, nil
}
