package queue

import (
	"log/slog"
	"time"

	"github.com/jdziat/simple-async-jobs/pkg/core"
)

// Options holds configuration for job enqueueing.
type Options struct {
	Priority int
	Delay    time.Duration
	RunAt    *time.Time
	GroupID  *uint
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Priority: 0,
	}
}

// Option modifies Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// Priority sets the job priority (higher = runs first).
func Priority(p int) Option {
	return optionFunc(func(o *Options) {
		o.Priority = p
	})
}

// Delay schedules the job to run after a duration, measured from the queue clock.
func Delay(d time.Duration) Option {
	return optionFunc(func(o *Options) {
		o.Delay = d
	})
}

// At schedules the job to run at a specific time. At takes precedence over Delay.
func At(t time.Time) Option {
	return optionFunc(func(o *Options) {
		o.RunAt = &t
	})
}

// InGroup associates the job with a group.
func InGroup(g *core.Group) Option {
	return optionFunc(func(o *Options) {
		if g == nil {
			o.GroupID = nil
			return
		}
		id := g.ID
		o.GroupID = &id
	})
}

// GroupID associates the job with a group by id.
func GroupID(id uint) Option {
	return optionFunc(func(o *Options) {
		o.GroupID = &id
	})
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithClock sets the clock used for Delay, Cancel timestamps and events.
// Sweeps and the retention job read time from the same clock.
func WithClock(c core.Clock) QueueOption {
	return func(q *Queue) {
		if c != nil {
			q.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithEventBuffer sets the buffer size of channels returned by Events.
func WithEventBuffer(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.eventBuffer = n
		}
	}
}
