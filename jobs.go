// Package jobs provides a persistent, priority-ordered job queue.
//
// Jobs are stored through GORM in SQLite or PostgreSQL and run by a sweep:
// due scheduled jobs first (priority, then time), then unscheduled jobs
// (priority, then creation order). A failing job is recorded as an error
// and never retried. The built-in retention job removes old jobs and
// reschedules itself.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages.
//
// Basic usage:
//
//	store, _ := jobs.Open(jobs.DriverSQLite, "jobs.db")
//	store.Migrate(ctx)
//	q := jobs.New(store)
//
//	q.Register("send-email", func(ctx context.Context, to string) error {
//	    return sendEmail(to)
//	})
//	q.Enqueue(ctx, "send-email", "user@example.com", jobs.Priority(5))
//
//	// Run everything that is due once.
//	report, err := jobs.NewSweeper(q).Run(ctx)
//
//	// Or keep sweeping every minute.
//	jobs.NewWorker(jobs.NewSweeper(q)).Start(ctx)
package jobs

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-async-jobs/pkg/core"
	"github.com/jdziat/simple-async-jobs/pkg/jobctx"
	"github.com/jdziat/simple-async-jobs/pkg/queue"
	"github.com/jdziat/simple-async-jobs/pkg/retention"
	"github.com/jdziat/simple-async-jobs/pkg/schedule"
	"github.com/jdziat/simple-async-jobs/pkg/security"
	"github.com/jdziat/simple-async-jobs/pkg/storage"
	"github.com/jdziat/simple-async-jobs/pkg/sweep"
	"github.com/jdziat/simple-async-jobs/pkg/worker"
)

// Type aliases
type (
	// Job is a persisted unit of work.
	Job = core.Job

	// Group is an opaque label shared by related jobs.
	Group = core.Group

	// JobError records one failed execution.
	JobError = core.JobError

	// Stats holds job counts by state.
	Stats = core.Stats

	// Storage defines the persistence layer for jobs.
	Storage = core.Storage

	// Clock supplies the current time.
	Clock = core.Clock

	// Event is the interface for all queue events.
	Event = core.Event

	// JobEnqueued is emitted when a job is stored.
	JobEnqueued = core.JobEnqueued

	// JobStarted is emitted when a sweep starts a job.
	JobStarted = core.JobStarted

	// JobCompleted is emitted when a job's work returns without error.
	JobCompleted = core.JobCompleted

	// JobFailed is emitted when a job's work fails.
	JobFailed = core.JobFailed

	// JobCancelled is emitted when a pending job is cancelled.
	JobCancelled = core.JobCancelled

	// Queue registers work and enqueues jobs.
	Queue = queue.Queue

	// Option modifies Options.
	Option = queue.Option

	// Options holds enqueue settings.
	Options = queue.Options

	// QueueOption configures a Queue.
	QueueOption = queue.QueueOption

	// Sweeper runs due jobs.
	Sweeper = sweep.Sweeper

	// SweepOption configures a Sweeper.
	SweepOption = sweep.Option

	// SweepReport summarizes one sweep.
	SweepReport = sweep.Report

	// Worker runs sweeps on a schedule.
	Worker = worker.Worker

	// WorkerOption configures a Worker.
	WorkerOption = worker.WorkerOption

	// WorkerConfig holds worker configuration.
	WorkerConfig = worker.WorkerConfig

	// Retention removes old jobs and reschedules itself.
	Retention = retention.Retention

	// RetentionArgs is the payload of the retention job.
	RetentionArgs = retention.Args

	// RetentionResult describes one retention run.
	RetentionResult = retention.Result

	// Schedule defines when something should run next.
	Schedule = schedule.Schedule

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// PoolOption tunes the database connection pool.
	PoolOption = storage.PoolOption
)

// Storage drivers
const (
	DriverSQLite   = storage.DriverSQLite
	DriverPostgres = storage.DriverPostgres
)

// Retention defaults
const (
	RetentionJobName     = retention.JobName
	DefaultRetentionDays = retention.DefaultRetentionDays
)

// Security limits
const (
	MaxJobNameLength   = security.MaxJobNameLength
	MaxJobArgsSize     = security.MaxJobArgsSize
	MaxExceptionLength = security.MaxExceptionLength
	MaxTracebackLength = security.MaxTracebackLength
	MaxRetentionDays   = security.MaxRetentionDays
)

// Error variables
var (
	ErrInvalidJobName        = core.ErrInvalidJobName
	ErrJobNameTooLong        = core.ErrJobNameTooLong
	ErrJobArgsTooLarge       = core.ErrJobArgsTooLarge
	ErrInvalidGroupReference = core.ErrInvalidGroupReference
	ErrJobNotFound           = core.ErrJobNotFound
	ErrJobNotPending         = core.ErrJobNotPending
	ErrClaimLost             = core.ErrClaimLost
	ErrGroupNotFound         = core.ErrGroupNotFound
	ErrHandlerNotFound       = core.ErrHandlerNotFound
)

// SystemClock returns the current time in UTC.
var SystemClock = core.SystemClock

// New creates a new Queue with the given storage backend.
func New(s Storage, opts ...QueueOption) *Queue {
	return queue.New(s, opts...)
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// Open opens a SQLite or PostgreSQL database and wraps it in GormStorage.
func Open(driver, dsn string, opts ...PoolOption) (*GormStorage, error) {
	return storage.Open(driver, dsn, opts...)
}

// NewSweeper creates a Sweeper over the queue.
func NewSweeper(q *Queue, opts ...SweepOption) *Sweeper {
	return sweep.New(q, opts...)
}

// NewWorker creates a worker that sweeps on a schedule.
func NewWorker(s *Sweeper, opts ...WorkerOption) *Worker {
	return worker.NewWorker(s, opts...)
}

// NewRetention creates the retention job for q. Call Register before the
// first sweep and Ensure once to schedule the first run.
func NewRetention(q *Queue, opts ...retention.Option) *Retention {
	return retention.New(q, opts...)
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return queue.NewOptions()
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return core.FixedClock(t)
}

// Job option functions

// Priority sets the job priority (higher runs first).
func Priority(p int) Option {
	return queue.Priority(p)
}

// Delay schedules the job to run after a duration.
func Delay(d time.Duration) Option {
	return queue.Delay(d)
}

// At schedules the job to run at a specific time.
func At(t time.Time) Option {
	return queue.At(t)
}

// InGroup attaches the job to a group.
func InGroup(g *Group) Option {
	return queue.InGroup(g)
}

// Queue option functions

// WithClock sets the clock used for scheduling and execution timestamps.
func WithClock(c Clock) QueueOption {
	return queue.WithClock(c)
}

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) QueueOption {
	return queue.WithLogger(l)
}

// Sweep option functions

// MaxJobs limits the number of jobs a sweep executes; 0 means no limit.
func MaxJobs(n int) SweepOption {
	return sweep.WithMaxJobs(n)
}

// StaleClaimAfter releases claims older than d at the start of each sweep.
func StaleClaimAfter(d time.Duration) SweepOption {
	return sweep.WithStaleClaimAfter(d)
}

// SweepOutput writes one "<id>: <job>" line per executed job to w.
func SweepOutput(w io.Writer) SweepOption {
	return sweep.WithOutput(w)
}

// Worker option functions

// Interval sweeps at a fixed interval.
func Interval(d time.Duration) WorkerOption {
	return worker.Interval(d)
}

// WithSchedule sweeps on an arbitrary schedule.
func WithSchedule(s Schedule) WorkerOption {
	return worker.WithSchedule(s)
}

// Schedule functions

// Every creates a schedule that runs at fixed intervals.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Daily creates a schedule that runs at a specific time each day.
func Daily(hour, minute int) Schedule {
	return schedule.Daily(hour, minute)
}

// Weekly creates a schedule that runs at a specific day and time each week.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return schedule.Weekly(day, hour, minute)
}

// Cron creates a schedule from a cron expression.
func Cron(expr string) Schedule {
	return schedule.Cron(expr)
}

// ValidateJobName validates a job name.
func ValidateJobName(name string) error {
	return security.ValidateJobName(name)
}

// JobFromContext returns the current Job from context, or nil if not in a job handler.
func JobFromContext(ctx context.Context) *Job {
	return jobctx.JobFromContext(ctx)
}

// JobIDFromContext returns the current job ID from context, or 0 if not in a job handler.
func JobIDFromContext(ctx context.Context) uint {
	return jobctx.JobIDFromContext(ctx)
}
