// Package core provides the fundamental types and interfaces for the jobs package.
//
// This package contains:
//   - Job, Group and JobError data models with GORM annotations
//   - Storage interface defining the persistence contract
//   - Clock abstraction used for every time-sensitive decision
//   - Event types for queue monitoring
//   - Sentinel errors
//
// Most users should import the root package github.com/jdziat/simple-async-jobs
// instead of this package directly.
package core
