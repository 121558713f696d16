package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jdziat/simple-async-jobs/pkg/core"
	"github.com/jdziat/simple-async-jobs/pkg/internal/handler"
	"github.com/jdziat/simple-async-jobs/pkg/security"
)

// Queue manages handler registration and the persistence side of the job lifecycle.
type Queue struct {
	storage  core.Storage
	handlers map[string]*handler.Handler
	clock    core.Clock
	logger   *slog.Logger
	mu       sync.RWMutex

	// Hooks
	onStart    []func(context.Context, *core.Job)
	onComplete []func(context.Context, *core.Job)
	onFail     []func(context.Context, *core.Job, error)

	// Event stream
	eventBuffer int
	eventSubs   []chan core.Event
}

// New creates a new Queue with the given storage backend.
func New(s core.Storage, opts ...QueueOption) *Queue {
	q := &Queue{
		storage:     s,
		handlers:    make(map[string]*handler.Handler),
		clock:       core.SystemClock,
		logger:      slog.Default(),
		eventBuffer: 100,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Register registers a job handler function.
// The function must have signature func(ctx context.Context, args T) error,
// func(ctx context.Context) error or func(args T) error.
// Job names must be alphanumeric (starting with a letter), max 255 chars.
func (q *Queue) Register(name string, fn any) {
	if err := security.ValidateJobName(name); err != nil {
		panic(fmt.Sprintf("jobs: invalid handler name %q: %v", name, err))
	}

	h, err := handler.NewHandler(fn)
	if err != nil {
		panic(fmt.Sprintf("jobs: handler for %q: %v", name, err))
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// HasHandler checks if a handler is registered.
func (q *Queue) HasHandler(name string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.handlers[name]
	return ok
}

// Resolve returns the handler registered for name.
func (q *Queue) Resolve(name string) (*handler.Handler, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w for %q", core.ErrHandlerNotFound, name)
	}
	return h, nil
}

// Names returns the registered handler names.
func (q *Queue) Names() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	names := make([]string, 0, len(q.handlers))
	for name := range q.handlers {
		names = append(names, name)
	}
	return names
}

// Enqueue persists a new pending job. The name does not need a handler in
// this process; it is resolved when a sweep executes the job.
func (q *Queue) Enqueue(ctx context.Context, name string, args any, opts ...Option) (*core.Job, error) {
	job, err := q.buildJob(ctx, name, args, opts)
	if err != nil {
		return nil, err
	}

	if err := q.storage.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("jobs: failed to enqueue: %w", err)
	}

	q.logger.Debug("job enqueued", "job_id", job.ID, "job", job.String(), "priority", job.Priority)
	q.Emit(&core.JobEnqueued{Job: job, Timestamp: q.clock.Now()})
	return job, nil
}

// EnsurePending returns the oldest pending job named name, or enqueues a new
// one when none exists. The boolean reports whether a job was created.
func (q *Queue) EnsurePending(ctx context.Context, name string, args any, opts ...Option) (*core.Job, bool, error) {
	job, err := q.buildJob(ctx, name, args, opts)
	if err != nil {
		return nil, false, err
	}

	got, created, err := q.storage.CreatePendingJob(ctx, job)
	if err != nil {
		return nil, false, fmt.Errorf("jobs: failed to ensure pending job: %w", err)
	}

	if created {
		q.logger.Debug("job enqueued", "job_id", got.ID, "job", got.String(), "priority", got.Priority)
		q.Emit(&core.JobEnqueued{Job: got, Timestamp: q.clock.Now()})
	}
	return got, created, nil
}

func (q *Queue) buildJob(ctx context.Context, name string, args any, opts []Option) (*core.Job, error) {
	if err := security.ValidateJobName(name); err != nil {
		return nil, err
	}

	options := NewOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}

	var argsBytes []byte
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("jobs: failed to marshal args: %w", err)
		}
		argsBytes = b
	}

	// Enforce size limit on arguments
	if len(argsBytes) > security.MaxJobArgsSize {
		return nil, core.ErrJobArgsTooLarge
	}

	if options.GroupID != nil {
		g, err := q.storage.GetGroup(ctx, *options.GroupID)
		if err != nil {
			return nil, fmt.Errorf("jobs: failed to load group: %w", err)
		}
		if g == nil {
			return nil, core.ErrGroupNotFound
		}
	}

	job := &core.Job{
		Name:     name,
		Args:     argsBytes,
		Priority: options.Priority,
		GroupID:  options.GroupID,
	}

	if options.Delay > 0 {
		runAt := q.clock.Now().Add(options.Delay)
		job.Scheduled = &runAt
	}
	if options.RunAt != nil {
		runAt := *options.RunAt
		job.Scheduled = &runAt
	}

	return job, nil
}

// Cancel withdraws a pending job. Jobs that already executed, were already
// cancelled or are claimed by a running sweep return core.ErrJobNotPending.
func (q *Queue) Cancel(ctx context.Context, jobID uint) (*core.Job, error) {
	if err := q.storage.CancelJob(ctx, jobID, q.clock.Now()); err != nil {
		return nil, err
	}

	job, err := q.storage.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("jobs: failed to reload cancelled job: %w", err)
	}
	if job == nil {
		return nil, core.ErrJobNotFound
	}

	q.logger.Debug("job cancelled", "job_id", job.ID, "job", job.String())
	q.Emit(&core.JobCancelled{Job: job, Timestamp: q.clock.Now()})
	return job, nil
}

// CreateGroup persists a new group with the given reference.
func (q *Queue) CreateGroup(ctx context.Context, reference string) (*core.Group, error) {
	if err := security.ValidateGroupReference(reference); err != nil {
		return nil, err
	}
	g := &core.Group{Reference: reference, CreatedAt: q.Now()}
	if err := q.storage.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("jobs: failed to create group: %w", err)
	}
	return g, nil
}

// Storage returns the underlying storage.
func (q *Queue) Storage() core.Storage {
	return q.storage
}

// Clock returns the queue clock.
func (q *Queue) Clock() core.Clock {
	return q.clock
}

// Logger returns the queue logger.
func (q *Queue) Logger() *slog.Logger {
	return q.logger
}

// Now is shorthand for q.Clock().Now().
func (q *Queue) Now() time.Time {
	return q.clock.Now()
}

// OnJobStart registers a callback for when a job starts.
func (q *Queue) OnJobStart(fn func(context.Context, *core.Job)) {
	q.mu.Lock()
	q.onStart = append(q.onStart, fn)
	q.mu.Unlock()
}

// OnJobComplete registers a callback for when a job completes successfully.
func (q *Queue) OnJobComplete(fn func(context.Context, *core.Job)) {
	q.mu.Lock()
	q.onComplete = append(q.onComplete, fn)
	q.mu.Unlock()
}

// OnJobFail registers a callback for when a job's work fails.
func (q *Queue) OnJobFail(fn func(context.Context, *core.Job, error)) {
	q.mu.Lock()
	q.onFail = append(q.onFail, fn)
	q.mu.Unlock()
}

// Events returns a channel for receiving queue events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (q *Queue) Events() <-chan core.Event {
	ch := make(chan core.Event, q.eventBuffer)
	q.mu.Lock()
	q.eventSubs = append(q.eventSubs, ch)
	q.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed. After Unsubscribe returns, no further events
// will be sent to the channel.
func (q *Queue) Unsubscribe(ch <-chan core.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, sub := range q.eventSubs {
		if sub == ch {
			q.eventSubs = append(q.eventSubs[:i], q.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit emits an event to all subscribers.
func (q *Queue) Emit(e core.Event) {
	q.mu.RLock()
	// Copy so Events() can be called while we iterate
	subs := make([]chan core.Event, len(q.eventSubs))
	copy(subs, q.eventSubs)
	q.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if full
		}
	}
}

// CallStartHooks calls all registered start hooks.
func (q *Queue) CallStartHooks(ctx context.Context, job *core.Job) {
	q.mu.RLock()
	hooks := make([]func(context.Context, *core.Job), len(q.onStart))
	copy(hooks, q.onStart)
	q.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job)
	}
}

// CallCompleteHooks calls all registered complete hooks.
func (q *Queue) CallCompleteHooks(ctx context.Context, job *core.Job) {
	q.mu.RLock()
	hooks := make([]func(context.Context, *core.Job), len(q.onComplete))
	copy(hooks, q.onComplete)
	q.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job)
	}
}

// CallFailHooks calls all registered fail hooks.
func (q *Queue) CallFailHooks(ctx context.Context, job *core.Job, err error) {
	q.mu.RLock()
	hooks := make([]func(context.Context, *core.Job, error), len(q.onFail))
	copy(hooks, q.onFail)
	q.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job, err)
	}
}
