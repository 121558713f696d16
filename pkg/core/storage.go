package core

import (
	"context"
	"time"
)

// Storage defines the persistence layer for jobs, groups and job errors.
// Each method is individually atomic.
type Storage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Jobs
	CreateJob(ctx context.Context, job *Job) error
	// CreatePendingJob returns the oldest pending job named job.Name if one
	// exists; otherwise it persists job. The boolean reports whether job was created.
	CreatePendingJob(ctx context.Context, job *Job) (*Job, bool, error)
	UpdateJob(ctx context.Context, job *Job) error
	// GetJob returns nil, nil when the job does not exist.
	GetJob(ctx context.Context, jobID uint) (*Job, error)
	PendingJobsByName(ctx context.Context, name string) ([]*Job, error)

	// Dispatch
	DueScheduledJobs(ctx context.Context, now time.Time, limit int) ([]*Job, error)
	DueUnscheduledJobs(ctx context.Context, limit int) ([]*Job, error)
	ClaimJob(ctx context.Context, jobID uint, owner string, at time.Time) (bool, error)
	MarkExecuted(ctx context.Context, jobID uint, owner string, at time.Time) error
	CancelJob(ctx context.Context, jobID uint, at time.Time) error
	ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error)
	// ReleaseClaim returns an unfinished job held by owner to the pending state.
	ReleaseClaim(ctx context.Context, jobID uint, owner string) error

	// Errors
	SaveJobError(ctx context.Context, e *JobError) error
	GetJobErrors(ctx context.Context, jobID uint) ([]JobError, error)

	// Groups
	CreateGroup(ctx context.Context, g *Group) error
	// GetGroup returns nil, nil when the group does not exist.
	GetGroup(ctx context.Context, groupID uint) (*Group, error)
	GroupJobs(ctx context.Context, groupID uint) ([]*Job, error)
	// DeleteEmptyGroups removes groups without jobs that are either listed
	// in groupIDs or were created before createdBefore.
	DeleteEmptyGroups(ctx context.Context, groupIDs []uint, createdBefore time.Time) (int64, error)

	// Retention
	TerminalJobsBefore(ctx context.Context, cutoff time.Time) ([]*Job, error)
	// DeleteJobs removes the jobs and their errors in one transaction and
	// returns the number of jobs and errors removed.
	DeleteJobs(ctx context.Context, jobIDs []uint) (jobs int64, errs int64, err error)

	// Queries
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}
