// Package core provides the domain models and interfaces for the jobs package.
package core

import (
	"fmt"
	"time"
)

// Job represents a unit of work to be dispatched by a sweep.
type Job struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"`
	Name      string     `gorm:"index;size:255;not null"`
	Args      []byte     `gorm:"type:bytes"`
	Priority  int        `gorm:"index;default:0"`
	Scheduled *time.Time `gorm:"index"`
	Executed  *time.Time `gorm:"index"`
	Cancelled *time.Time `gorm:"index"`
	GroupID   *uint      `gorm:"index"` // Weak reference, groups do not own jobs

	// Claim marker written atomically before the work runs.
	ClaimedBy string `gorm:"index;size:36;default:''"`
	ClaimedAt *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// IsTerminal reports whether the job has been executed or cancelled.
func (j *Job) IsTerminal() bool {
	return j.Executed != nil || j.Cancelled != nil
}

// IsPending reports whether the job can still be selected by a sweep.
func (j *Job) IsPending() bool {
	return !j.IsTerminal() && j.ClaimedBy == ""
}

// TerminatedAt returns the instant the job became terminal, or nil.
// If both timestamps are set the later one wins.
func (j *Job) TerminatedAt() *time.Time {
	switch {
	case j.Executed != nil && j.Cancelled != nil:
		if j.Cancelled.After(*j.Executed) {
			return j.Cancelled
		}
		return j.Executed
	case j.Executed != nil:
		return j.Executed
	default:
		return j.Cancelled
	}
}

// IsDue reports whether a pending job is eligible to run at now.
func (j *Job) IsDue(now time.Time) bool {
	if !j.IsPending() {
		return false
	}
	return j.Scheduled == nil || !j.Scheduled.After(now)
}

func (j *Job) String() string {
	if len(j.Args) == 0 || string(j.Args) == "null" {
		return j.Name + "()"
	}
	return fmt.Sprintf("%s(%s)", j.Name, j.Args)
}

// Group is an opaque label shared by related jobs.
type Group struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Reference string    `gorm:"index;size:255;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName avoids the GROUPS keyword.
func (Group) TableName() string { return "job_groups" }

// JobError records a failed execution attempt. Rows are owned by their job
// and removed together with it.
type JobError struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	JobID     uint      `gorm:"index;not null"`
	Exception string    `gorm:"type:text"`
	Traceback string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Stats summarizes the contents of the store.
type Stats struct {
	Pending   int64 // due now or unscheduled
	Deferred  int64 // scheduled in the future
	Claimed   int64
	Executed  int64
	Cancelled int64
	Errors    int64
	Groups    int64
}
