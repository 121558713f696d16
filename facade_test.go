package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobs "github.com/jdziat/simple-async-jobs"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type mutableClock struct{ now time.Time }

func (c *mutableClock) Now() time.Time { return c.now }

// setupTestQueue creates an in-memory SQLite storage and a queue on a
// controllable clock.
func setupTestQueue(t *testing.T) (*jobs.Queue, *jobs.GormStorage, *mutableClock) {
	t.Helper()
	store, err := jobs.Open(jobs.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	clock := &mutableClock{now: baseTime}
	return jobs.New(store, jobs.WithClock(clock)), store, clock
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestFacadeNew_CreatesQueue(t *testing.T) {
	q, store, _ := setupTestQueue(t)
	assert.NotNil(t, q)
	assert.Equal(t, jobs.Storage(store), q.Storage())
	assert.Equal(t, baseTime, q.Now())
}

func TestFacadeNewGormStorage_WrapsDB(t *testing.T) {
	_, store, _ := setupTestQueue(t)
	wrapped := jobs.NewGormStorage(store.DB())
	assert.True(t, wrapped.IsSQLite())
}

func TestFacadeOpen_UnknownDriver(t *testing.T) {
	_, err := jobs.Open("oracle", "dsn")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Enqueue, sweep and cancel
// ---------------------------------------------------------------------------

func TestFacade_EnqueueSweepCancel(t *testing.T) {
	q, store, clock := setupTestQueue(t)
	ctx := context.Background()

	var seen []string
	q.Register("greet", func(ctx context.Context, name string) error {
		assert.NotZero(t, jobs.JobIDFromContext(ctx))
		seen = append(seen, name)
		return nil
	})

	_, err := q.Enqueue(ctx, "greet", "low")
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "greet", "high", jobs.Priority(10))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "greet", "later", jobs.Delay(time.Hour))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "greet", "due", jobs.At(baseTime.Add(-time.Minute)))
	require.NoError(t, err)
	cancelled, err := q.Enqueue(ctx, "greet", "never")
	require.NoError(t, err)

	_, err = q.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = q.Cancel(ctx, cancelled.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotPending)

	var out bytes.Buffer
	sweeper := jobs.NewSweeper(q, jobs.SweepOutput(&out))
	report, err := sweeper.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"due", "high", "low"}, seen)
	assert.Equal(t, 3, report.Executed())
	assert.Equal(t, "4: greet(\"due\")\n2: greet(\"high\")\n1: greet(\"low\")\n", out.String())

	clock.now = baseTime.Add(2 * time.Hour)
	_, err = sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"due", "high", "low", "later"}, seen)

	stats, err := store.Stats(ctx, clock.now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Executed)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.Zero(t, stats.Pending)
}

func TestFacade_FailureIsRecorded(t *testing.T) {
	q, store, _ := setupTestQueue(t)
	ctx := context.Background()

	q.Register("fail", func(ctx context.Context) error {
		return errors.New("disk full")
	})
	job, err := q.Enqueue(ctx, "fail", nil)
	require.NoError(t, err)

	report, err := jobs.NewSweeper(q).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{job.ID}, report.Failed)

	errs, err := store.GetJobErrors(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "disk full", errs[0].Exception)

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.Executed)
}

func TestFacade_MaxJobs(t *testing.T) {
	q, _, _ := setupTestQueue(t)
	ctx := context.Background()
	q.Register("noop", func(ctx context.Context) error { return nil })

	for range 3 {
		_, err := q.Enqueue(ctx, "noop", nil)
		require.NoError(t, err)
	}

	report, err := jobs.NewSweeper(q, jobs.MaxJobs(2)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, report.Succeeded)
}

func TestFacade_Groups(t *testing.T) {
	q, store, _ := setupTestQueue(t)
	ctx := context.Background()

	g, err := q.CreateGroup(ctx, "import-42")
	require.NoError(t, err)
	job, err := q.Enqueue(ctx, "noop", nil, jobs.InGroup(g))
	require.NoError(t, err)
	require.NotNil(t, job.GroupID)
	assert.Equal(t, g.ID, *job.GroupID)

	members, err := store.GroupJobs(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

// ---------------------------------------------------------------------------
// Retention
// ---------------------------------------------------------------------------

func TestFacade_RetentionLifecycle(t *testing.T) {
	q, store, clock := setupTestQueue(t)
	ctx := context.Background()
	q.Register("noop", func(ctx context.Context) error { return nil })

	r := jobs.NewRetention(q)
	r.Register()

	first, created, err := r.Ensure(ctx, 0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, jobs.RetentionJobName, first.Name)

	old, err := q.Enqueue(ctx, "noop", nil)
	require.NoError(t, err)

	sweeper := jobs.NewSweeper(q)
	_, err = sweeper.Run(ctx)
	require.NoError(t, err)

	// Forty days later the old job is past the default window.
	clock.now = baseTime.AddDate(0, 0, 40)
	_, err = sweeper.Run(ctx)
	require.NoError(t, err)

	gone, err := store.GetJob(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	pending, err := store.PendingJobsByName(ctx, jobs.RetentionJobName)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, clock.now.Add(8*time.Hour), pending[0].Scheduled.UTC())
}

// ---------------------------------------------------------------------------
// Worker and schedules
// ---------------------------------------------------------------------------

func TestFacadeWorker_RunOnce(t *testing.T) {
	q, _, _ := setupTestQueue(t)
	ctx := context.Background()
	q.Register("noop", func(ctx context.Context) error { return nil })
	_, err := q.Enqueue(ctx, "noop", nil)
	require.NoError(t, err)

	w := jobs.NewWorker(jobs.NewSweeper(q), jobs.Interval(time.Second))
	report, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Executed())
}

func TestFacadeSchedules(t *testing.T) {
	assert.Equal(t, baseTime.Add(time.Hour), jobs.Every(time.Hour).Next(baseTime))
	assert.Equal(t, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), jobs.Daily(9, 0).Next(baseTime))
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), jobs.Weekly(time.Monday, 9, 0).Next(baseTime))
	assert.Equal(t, time.Date(2024, 3, 1, 12, 15, 0, 0, time.UTC), jobs.Cron("*/15 * * * *").Next(baseTime))
}

func TestFacadeValidateJobName(t *testing.T) {
	assert.NoError(t, jobs.ValidateJobName("reports.build"))
	assert.ErrorIs(t, jobs.ValidateJobName("9lives"), jobs.ErrInvalidJobName)
}

func TestFacadeContextHelpers_OutsideJob(t *testing.T) {
	assert.Nil(t, jobs.JobFromContext(context.Background()))
	assert.Zero(t, jobs.JobIDFromContext(context.Background()))
}

func TestFacadeFixedClock(t *testing.T) {
	assert.Equal(t, baseTime, jobs.FixedClock(baseTime).Now())
}
