package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"sam/internal/logging"
	"sam/internal/services"
)

// Job is a unit of session work.
type Job func(ctx context.Context) error

// JobInfo describes a job to observers.
type JobInfo struct {
	ID      string
	Session string
	Kind    string
	Seq     uint64
}

// Observer receives job lifecycle callbacks. JobQueued runs on the enqueuing
// goroutine while the queue lock is held; JobStarted and JobFinished run on
// the worker goroutine. Observers must not block or call back into the queue;
// slow sinks such as the journal hand the event to their own goroutine.
type Observer interface {
	JobQueued(info JobInfo)
	JobStarted(info JobInfo)
	JobFinished(info JobInfo, duration time.Duration, err error)
}

// Handle tracks a single enqueued job.
type Handle struct {
	info JobInfo
	done chan struct{}
	err  error
}

// Info returns the job's identity.
func (h *Handle) Info() JobInfo { return h.info }

// Done is closed once the job has settled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the job's error. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the job settles or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type entry struct {
	handle   *Handle
	job      Job
	internal bool
}

// Queue is a strict FIFO of jobs for one session.
type Queue struct {
	session   string
	logger    *slog.Logger
	observers []Observer
	baseCtx   context.Context

	mu        sync.Mutex
	pending   []entry
	running   bool
	executing bool
	seq       uint64
}

// Option customizes a Queue.
type Option func(*Queue)

// WithLogger sets the queue logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithObserver registers a lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(q *Queue) {
		if obs != nil {
			q.observers = append(q.observers, obs)
		}
	}
}

// WithContext sets the parent context passed to jobs. Jobs still run after
// the context is cancelled; they observe cancellation through ctx.
func WithContext(ctx context.Context) Option {
	return func(q *Queue) {
		if ctx != nil {
			q.baseCtx = ctx
		}
	}
}

// New creates an empty queue for the given session ID.
func New(session string, opts ...Option) *Queue {
	q := &Queue{
		session: session,
		logger:  logging.NewNop(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = logging.NewComponentLogger(q.logger, "jobqueue").With(logging.String(logging.FieldSessionID, session))
	return q
}

// Session returns the session ID the queue was created for.
func (q *Queue) Session() string { return q.session }

// Enqueue appends job to the queue and starts the worker when idle.
func (q *Queue) Enqueue(kind string, job Job) *Handle {
	return q.enqueue(kind, job, false)
}

func (q *Queue) enqueue(kind string, job Job, internal bool) *Handle {
	q.mu.Lock()
	handle := &Handle{
		info: JobInfo{Session: q.session, Kind: kind},
		done: make(chan struct{}),
	}
	if !internal {
		q.seq++
		handle.info.ID = uuid.NewString()
		handle.info.Seq = q.seq
		for _, obs := range q.observers {
			obs.JobQueued(handle.info)
		}
	}
	q.pending = append(q.pending, entry{handle: handle, job: job, internal: internal})
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if !internal {
		q.logger.Debug("job queued",
			logging.String(logging.FieldJobID, handle.info.ID),
			logging.String(logging.FieldJobKind, kind),
			logging.Any("seq", handle.info.Seq),
			logging.String(logging.FieldEventType, "job_queued"),
		)
	}
	if start {
		go q.work()
	}
	return handle
}

// Pending reports jobs waiting or running.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.pending {
		if !e.internal {
			n++
		}
	}
	if q.executing {
		n++
	}
	return n
}

// Drain waits until every job enqueued before the call has settled.
func (q *Queue) Drain(ctx context.Context) error {
	barrier := q.enqueue("barrier", nil, true)
	return barrier.Wait(ctx)
}

func (q *Queue) work() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending[0] = entry{}
		q.pending = q.pending[1:]
		q.executing = !next.internal
		q.mu.Unlock()

		if next.internal {
			close(next.handle.done)
		} else {
			q.run(next)
		}

		q.mu.Lock()
		q.executing = false
		q.mu.Unlock()
	}
}

func (q *Queue) run(e entry) {
	info := e.handle.info
	ctx := services.WithSessionID(q.baseCtx, q.session)
	ctx = services.WithJob(ctx, info.ID, info.Kind)
	logger := logging.WithContext(ctx, q.logger)

	for _, obs := range q.observers {
		obs.JobStarted(info)
	}
	started := time.Now()
	err := invoke(ctx, e.job)
	elapsed := time.Since(started)

	if err != nil {
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldErrorHint, "inspect the session directory and retry the command"),
		)
	} else {
		logger.Debug("job completed",
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldEventType, "job_completed"),
		)
	}

	e.handle.err = err
	for _, obs := range q.observers {
		obs.JobFinished(info, elapsed, err)
	}
	close(e.handle.done)
}

func invoke(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v\n%s", r, debug.Stack())
		}
	}()
	if job == nil {
		return nil
	}
	return job(ctx)
}
