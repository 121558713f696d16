package core

import "time"

// Event is the interface for all queue events.
type Event interface {
	eventMarker()
}

// JobEnqueued is emitted when a job is persisted.
type JobEnqueued struct {
	Job       *Job
	Timestamp time.Time
}

func (*JobEnqueued) eventMarker() {}

// JobStarted is emitted after a job is claimed and before its work runs.
type JobStarted struct {
	Job       *Job
	SweepID   string
	Timestamp time.Time
}

func (*JobStarted) eventMarker() {}

// JobCompleted is emitted when a job's work returns without error.
type JobCompleted struct {
	Job       *Job
	Duration  time.Duration
	Timestamp time.Time
}

func (*JobCompleted) eventMarker() {}

// JobFailed is emitted when a job's work fails and the error is recorded.
type JobFailed struct {
	Job       *Job
	Error     error
	Timestamp time.Time
}

func (*JobFailed) eventMarker() {}

// JobCancelled is emitted when a pending job is withdrawn.
type JobCancelled struct {
	Job       *Job
	Timestamp time.Time
}

func (*JobCancelled) eventMarker() {}
