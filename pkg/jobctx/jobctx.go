// Package jobctx provides public access to job context for handlers.
package jobctx

import (
	"context"

	"github.com/jdziat/simple-async-jobs/pkg/core"
)

type jobContextKey struct{}

// JobContext describes the execution a handler is running under.
type JobContext struct {
	Job     *core.Job
	SweepID string
}

// WithJob returns a context carrying the job being executed and the sweep that claimed it.
func WithJob(ctx context.Context, job *core.Job, sweepID string) context.Context {
	return context.WithValue(ctx, jobContextKey{}, &JobContext{Job: job, SweepID: sweepID})
}

func fromContext(ctx context.Context) *JobContext {
	jc, _ := ctx.Value(jobContextKey{}).(*JobContext)
	return jc
}

// JobFromContext returns the current Job from context, or nil if not in a job handler.
// Use this to get the job ID for logging or progress tracking.
func JobFromContext(ctx context.Context) *core.Job {
	jc := fromContext(ctx)
	if jc == nil {
		return nil
	}
	return jc.Job
}

// JobIDFromContext returns the current job ID from context, or 0 if not in a job handler.
func JobIDFromContext(ctx context.Context) uint {
	job := JobFromContext(ctx)
	if job == nil {
		return 0
	}
	return job.ID
}

// SweepIDFromContext returns the ID of the sweep executing the current job,
// or empty string if not in a job handler.
func SweepIDFromContext(ctx context.Context) string {
	jc := fromContext(ctx)
	if jc == nil {
		return ""
	}
	return jc.SweepID
}
