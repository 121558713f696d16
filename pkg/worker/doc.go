// Package worker provides the Worker type, a long-running sweep trigger.
//
// This package includes:
//   - Worker: runs one sweep at a time on a schedule
//   - WorkerOption: configuration options for workers
//   - RetryConfig: backoff applied when a sweep fails on storage errors
//
// The CLI's watch command is the main user of this package.
package worker
