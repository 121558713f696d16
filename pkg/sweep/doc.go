// Package sweep provides the dispatcher that runs due jobs.
//
// A sweep takes two snapshots when it starts: due scheduled jobs ordered by
// priority, scheduled time and id, then unscheduled jobs ordered by priority
// and id. Each job is claimed with a conditional update before its handler
// runs, so concurrent sweeps never run the same job twice. A handler error,
// a panic or a missing handler is stored as a core.JobError and the job is
// still marked executed; only storage failures abort the sweep.
package sweep
