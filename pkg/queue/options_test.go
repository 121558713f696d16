package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jdziat/simple-async-jobs/pkg/core"
)

func TestNewOptions_Defaults(t *testing.T) {
	opts := NewOptions()

	assert.Equal(t, 0, opts.Priority)
	assert.Zero(t, opts.Delay)
	assert.Nil(t, opts.RunAt)
	assert.Nil(t, opts.GroupID)
}

func TestPriority(t *testing.T) {
	opts := NewOptions()
	Priority(10).Apply(opts)

	assert.Equal(t, 10, opts.Priority)
}

func TestPriority_Negative(t *testing.T) {
	opts := NewOptions()
	Priority(-5).Apply(opts)

	assert.Equal(t, -5, opts.Priority)
}

func TestDelay(t *testing.T) {
	opts := NewOptions()
	Delay(5 * time.Minute).Apply(opts)

	assert.Equal(t, 5*time.Minute, opts.Delay)
}

func TestAt(t *testing.T) {
	runAt := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	opts := NewOptions()
	At(runAt).Apply(opts)

	assert.NotNil(t, opts.RunAt)
	assert.True(t, runAt.Equal(*opts.RunAt))
}

func TestInGroup(t *testing.T) {
	opts := NewOptions()
	InGroup(&core.Group{ID: 12}).Apply(opts)

	assert.NotNil(t, opts.GroupID)
	assert.Equal(t, uint(12), *opts.GroupID)

	InGroup(nil).Apply(opts)
	assert.Nil(t, opts.GroupID)
}

func TestGroupID(t *testing.T) {
	opts := NewOptions()
	GroupID(3).Apply(opts)

	assert.NotNil(t, opts.GroupID)
	assert.Equal(t, uint(3), *opts.GroupID)
}

func TestMultipleOptions(t *testing.T) {
	opts := NewOptions()

	Priority(50).Apply(opts)
	Delay(time.Hour).Apply(opts)
	GroupID(1).Apply(opts)

	assert.Equal(t, 50, opts.Priority)
	assert.Equal(t, time.Hour, opts.Delay)
	assert.Equal(t, uint(1), *opts.GroupID)
}

func TestQueueOptions_IgnoreNil(t *testing.T) {
	q := New(nil, WithClock(nil), WithLogger(nil), WithEventBuffer(0))

	assert.NotNil(t, q.Clock())
	assert.NotNil(t, q.Logger())
	assert.Equal(t, 100, q.eventBuffer)
}
