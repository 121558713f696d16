package core

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrInvalidJobName        = errors.New("jobs: invalid job name (must be alphanumeric, start with letter)")
	ErrJobNameTooLong        = errors.New("jobs: job name too long")
	ErrJobArgsTooLarge       = errors.New("jobs: job arguments exceed size limit")
	ErrInvalidGroupReference = errors.New("jobs: invalid group reference")
)

// Lifecycle errors
var (
	ErrJobNotFound     = errors.New("jobs: job not found")
	ErrJobNotPending   = errors.New("jobs: job is no longer pending")
	ErrClaimLost       = errors.New("jobs: job not claimed by this sweep")
	ErrGroupNotFound   = errors.New("jobs: group not found")
	ErrHandlerNotFound = errors.New("jobs: no handler registered")
)

// StoreError marks a storage failure raised inside a job's work. A sweep
// that sees it stops, leaves the job pending and returns the error instead
// of recording it as a job failure.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreFailure wraps err as a StoreError. It returns nil for a nil err.
func StoreFailure(err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Err: err}
}

// IsStoreFailure reports whether err carries a StoreError.
func IsStoreFailure(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
