// Package queue provides the Queue type, the scheduling side of the job lifecycle.
//
// This package includes:
//   - Queue: handler registry plus Enqueue, Cancel, EnsurePending and CreateGroup
//   - Option: configuration for enqueued jobs (priority, schedule, group)
//   - Hook registration for job lifecycle events
//   - Event subscription for monitoring
//
// Most users should import the root package github.com/jdziat/simple-async-jobs
// which re-exports Queue and all option functions.
package queue
