// Package storage provides storage implementations for the jobs package.
package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-async-jobs/pkg/core"
)

// pendingClause selects jobs that are neither terminal nor claimed.
const pendingClause = "executed IS NULL AND cancelled IS NULL AND claimed_by = ''"

// GormStorage implements Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying *gorm.DB.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the storage is backed by SQLite.
func (s *GormStorage) IsSQLite() bool {
	return s.db != nil && s.db.Dialector != nil && s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Job{}, &core.Group{}, &core.JobError{})
}

// CreateJob persists a new job.
func (s *GormStorage) CreateJob(ctx context.Context, job *core.Job) error {
	normalizeJob(job)
	return s.db.WithContext(ctx).Create(job).Error
}

// CreatePendingJob creates job unless a pending job with the same name exists.
func (s *GormStorage) CreatePendingJob(ctx context.Context, job *core.Job) (*core.Job, bool, error) {
	normalizeJob(job)

	var existing core.Job
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("name = ?", job.Name).
			Where(pendingClause).
			Order("id ASC").
			First(&existing)
		if result.Error == nil {
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		created = true
		return tx.Create(job).Error
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		return job, true, nil
	}
	return &existing, false, nil
}

// UpdateJob saves every column of an existing job.
func (s *GormStorage) UpdateJob(ctx context.Context, job *core.Job) error {
	normalizeJob(job)
	return s.db.WithContext(ctx).Save(job).Error
}

// GetJob retrieves a job by ID. It returns nil, nil when no row matches.
func (s *GormStorage) GetJob(ctx context.Context, jobID uint) (*core.Job, error) {
	var job core.Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// PendingJobsByName returns pending jobs with the given name in id order.
func (s *GormStorage) PendingJobsByName(ctx context.Context, name string) ([]*core.Job, error) {
	var jobList []*core.Job
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Where(pendingClause).
		Order("id ASC").
		Find(&jobList).Error
	return jobList, err
}

// DueScheduledJobs returns pending jobs whose scheduled time has passed,
// ordered by priority (descending), scheduled time, then id.
func (s *GormStorage) DueScheduledJobs(ctx context.Context, now time.Time, limit int) ([]*core.Job, error) {
	var jobList []*core.Job
	q := s.db.WithContext(ctx).
		Where(pendingClause).
		Where("scheduled IS NOT NULL AND scheduled <= ?", now.UTC()).
		Order("priority DESC, scheduled ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&jobList).Error
	return jobList, err
}

// DueUnscheduledJobs returns pending jobs without a scheduled time,
// ordered by priority (descending) then id.
func (s *GormStorage) DueUnscheduledJobs(ctx context.Context, limit int) ([]*core.Job, error) {
	var jobList []*core.Job
	q := s.db.WithContext(ctx).
		Where(pendingClause).
		Where("scheduled IS NULL").
		Order("priority DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&jobList).Error
	return jobList, err
}

// ClaimJob marks a pending job as owned by owner. It reports false when the
// job was executed, cancelled or claimed by someone else in the meantime.
func (s *GormStorage) ClaimJob(ctx context.Context, jobID uint, owner string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("id = ?", jobID).
		Where(pendingClause).
		Updates(map[string]any{
			"claimed_by": owner,
			"claimed_at": at.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkExecuted records the end of an execution attempt.
// Validates that owner holds the claim.
func (s *GormStorage) MarkExecuted(ctx context.Context, jobID uint, owner string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("id = ? AND claimed_by = ? AND executed IS NULL", jobID, owner).
		Update("executed", at.UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrClaimLost
	}
	return nil
}

// CancelJob withdraws a pending job.
func (s *GormStorage) CancelJob(ctx context.Context, jobID uint, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("id = ?", jobID).
		Where(pendingClause).
		Update("cancelled", at.UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return core.ErrJobNotFound
	}
	return core.ErrJobNotPending
}

// ReleaseStaleClaims returns claimed but unfinished jobs to the pending state.
func (s *GormStorage) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("executed IS NULL AND cancelled IS NULL").
		Where("claimed_by <> '' AND claimed_at < ?", claimedBefore.UTC()).
		Updates(map[string]any{
			"claimed_by": "",
			"claimed_at": nil,
		})
	return result.RowsAffected, result.Error
}

// ReleaseClaim clears owner's claim on a job that was not marked executed.
func (s *GormStorage) ReleaseClaim(ctx context.Context, jobID uint, owner string) error {
	result := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("id = ? AND claimed_by = ? AND executed IS NULL", jobID, owner).
		Updates(map[string]any{
			"claimed_by": "",
			"claimed_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrClaimLost
	}
	return nil
}

// SaveJobError stores an error record for a job.
func (s *GormStorage) SaveJobError(ctx context.Context, e *core.JobError) error {
	return s.db.WithContext(ctx).Create(e).Error
}

// GetJobErrors retrieves all error records for a job.
func (s *GormStorage) GetJobErrors(ctx context.Context, jobID uint) ([]core.JobError, error) {
	var errs []core.JobError
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("id ASC").
		Find(&errs).Error
	return errs, err
}

// CreateGroup persists a new group.
func (s *GormStorage) CreateGroup(ctx context.Context, g *core.Group) error {
	g.CreatedAt = g.CreatedAt.UTC()
	return s.db.WithContext(ctx).Create(g).Error
}

// GetGroup retrieves a group by ID. It returns nil, nil when no row matches.
func (s *GormStorage) GetGroup(ctx context.Context, groupID uint) (*core.Group, error) {
	var g core.Group
	err := s.db.WithContext(ctx).First(&g, "id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GroupJobs returns every job referencing the group.
func (s *GormStorage) GroupJobs(ctx context.Context, groupID uint) ([]*core.Job, error) {
	var jobList []*core.Job
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("id ASC").
		Find(&jobList).Error
	return jobList, err
}

// DeleteEmptyGroups removes groups that no job references, limited to the
// listed groups and groups created before createdBefore.
func (s *GormStorage) DeleteEmptyGroups(ctx context.Context, groupIDs []uint, createdBefore time.Time) (int64, error) {
	members := s.db.Model(&core.Job{}).
		Select("group_id").
		Where("group_id IS NOT NULL")
	q := s.db.WithContext(ctx).Where("id NOT IN (?)", members)
	if len(groupIDs) > 0 {
		q = q.Where("(id IN ? OR created_at < ?)", groupIDs, createdBefore.UTC())
	} else {
		q = q.Where("created_at < ?", createdBefore.UTC())
	}
	result := q.Delete(&core.Group{})
	return result.RowsAffected, result.Error
}

// TerminalJobsBefore returns jobs executed or cancelled before cutoff.
func (s *GormStorage) TerminalJobsBefore(ctx context.Context, cutoff time.Time) ([]*core.Job, error) {
	cutoff = cutoff.UTC()
	var jobList []*core.Job
	err := s.db.WithContext(ctx).
		Where("(executed IS NOT NULL AND executed < ?) OR (cancelled IS NOT NULL AND cancelled < ?)", cutoff, cutoff).
		Order("id ASC").
		Find(&jobList).Error
	return jobList, err
}

// DeleteJobs removes jobs together with their error records.
func (s *GormStorage) DeleteJobs(ctx context.Context, jobIDs []uint) (int64, int64, error) {
	if len(jobIDs) == 0 {
		return 0, 0, nil
	}

	var jobsDeleted, errsDeleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("job_id IN ?", jobIDs).Delete(&core.JobError{})
		if result.Error != nil {
			return result.Error
		}
		errsDeleted = result.RowsAffected

		result = tx.Where("id IN ?", jobIDs).Delete(&core.Job{})
		if result.Error != nil {
			return result.Error
		}
		jobsDeleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return jobsDeleted, errsDeleted, nil
}

// Stats counts jobs by state along with errors and groups.
func (s *GormStorage) Stats(ctx context.Context, now time.Time) (*core.Stats, error) {
	now = now.UTC()
	db := s.db.WithContext(ctx)
	stats := &core.Stats{}

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.Pending, db.Model(&core.Job{}).Where(pendingClause).Where("scheduled IS NULL OR scheduled <= ?", now)},
		{&stats.Deferred, db.Model(&core.Job{}).Where(pendingClause).Where("scheduled > ?", now)},
		{&stats.Claimed, db.Model(&core.Job{}).Where("executed IS NULL AND cancelled IS NULL AND claimed_by <> ''")},
		{&stats.Executed, db.Model(&core.Job{}).Where("executed IS NOT NULL")},
		{&stats.Cancelled, db.Model(&core.Job{}).Where("cancelled IS NOT NULL")},
		{&stats.Errors, db.Model(&core.JobError{})},
		{&stats.Groups, db.Model(&core.Group{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// normalizeJob stores every timestamp in UTC so that SQLite's textual
// comparisons order them correctly.
func normalizeJob(job *core.Job) {
	job.Scheduled = utc(job.Scheduled)
	job.Executed = utc(job.Executed)
	job.Cancelled = utc(job.Cancelled)
	job.ClaimedAt = utc(job.ClaimedAt)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
