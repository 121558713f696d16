// Package storage provides storage implementations for job persistence.
//
// This package includes:
//   - GormStorage: a GORM-based implementation of core.Storage
//   - Open: connects to SQLite or PostgreSQL with pool configuration
//
// The claim step used by the sweep is a conditional UPDATE that only matches
// unexecuted, uncancelled and unclaimed rows, so two sweeps can never both
// run the same job.
//
// Most users should import the root package github.com/jdziat/simple-async-jobs
// which provides NewGormStorage() to create storage instances.
package storage
