package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metrics"
	"git.home.luguber.info/inful/metricbus/internal/observability"
)

const defaultQueueSize = 1024

type queued[H any] struct {
	task Task[H]
	tc   *TaskContext
}

// Queue is a single-worker FIFO task queue owned by handle.
type Queue[H any] struct {
	handle   H
	tasks    chan queued[H]
	size     int
	recorder metrics.Recorder

	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Queue.
type Option func(*queueOptions)

type queueOptions struct {
	size     int
	recorder metrics.Recorder
}

// WithSize sets how many tasks may wait for the worker. Non-positive values
// keep the default of 1024.
func WithSize(n int) Option {
	return func(o *queueOptions) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithRecorder injects a metrics recorder for task outcomes and queue depth.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *queueOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewQueue creates a stopped queue whose tasks receive handle. Tasks may be
// scheduled before Start; they run once the worker starts.
func NewQueue[H any](handle H, opts ...Option) *Queue[H] {
	o := queueOptions{size: defaultQueueSize, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[H]{
		handle:   handle,
		tasks:    make(chan queued[H], o.size),
		size:     o.size,
		recorder: o.recorder,
		done:     make(chan struct{}),
	}
}

// Start launches the worker. It returns immediately; calling it again is a no-op.
func (q *Queue[H]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	slog.Info("Starting task queue", slog.Int("max_size", q.size))
	go q.worker(workerCtx)
}

// Stop refuses new tasks and waits for the worker to drain the tasks already
// queued. If ctx ends first the worker is cancelled and ctx's error returned;
// a task blocked in backend I/O may keep running after that.
func (q *Queue[H]) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.tasks)
	started := q.started
	q.mu.Unlock()

	if !started {
		for it := range q.tasks {
			q.drop(it, "queue stopped before start")
		}
		return nil
	}

	slog.Info("Stopping task queue", logfields.QueueLength(len(q.tasks)))
	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

// Len returns the number of tasks waiting for the worker.
func (q *Queue[H]) Len() int {
	return len(q.tasks)
}

// Schedule queues task for immediate execution.
func (q *Queue[H]) Schedule(task Task[H]) (*TaskContext, error) {
	return q.enqueue(task, 0)
}

// ScheduleDelayed queues task; the worker waits delay right before running it.
// The delay is best effort and counts from when the worker reaches the task.
func (q *Queue[H]) ScheduleDelayed(task Task[H], delay time.Duration) (*TaskContext, error) {
	if delay < 0 {
		delay = 0
	}
	return q.enqueue(task, delay)
}

// SchedulePeriodic is not supported by the base queue and always fails. Use
// Periodic for repeating work.
func (q *Queue[H]) SchedulePeriodic(_ Task[H], delay, period time.Duration) (*TaskContext, error) {
	return nil, derrors.UnsupportedError("periodically executed tasks are not supported by the task queue").
		WithContext("delay", delay.String()).
		WithContext("period", period.String()).
		Build()
}

func (q *Queue[H]) enqueue(task Task[H], delay time.Duration) (*TaskContext, error) {
	if task == nil {
		return nil, derrors.ValidationError("task cannot be nil").Build()
	}
	tc := &TaskContext{
		ID:          uuid.NewString(),
		Delay:       delay,
		ScheduledAt: time.Now(),
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return nil, derrors.RuntimeError("task queue is stopped").Build()
	}

	select {
	case q.tasks <- queued[H]{task: task, tc: tc}:
		q.recorder.SetQueueLength(len(q.tasks))
		return tc, nil
	default:
		q.recorder.IncTaskOutcome(metrics.TaskDropped)
		return nil, derrors.RuntimeError("task queue is full").
			Immediate().
			WithContext("max_size", q.size).
			Build()
	}
}

func (q *Queue[H]) worker(ctx context.Context) {
	defer close(q.done)

	for {
		select {
		case <-ctx.Done():
			return
		case it, ok := <-q.tasks:
			if !ok {
				return
			}
			q.recorder.SetQueueLength(len(q.tasks))
			q.run(ctx, it)
		}
	}
}

func (q *Queue[H]) run(ctx context.Context, it queued[H]) {
	tc := it.tc
	if tc.Delay > 0 {
		timer := time.NewTimer(tc.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			q.drop(it, "queue cancelled during delay")
			return
		}
	}

	taskCtx := observability.WithTaskID(ctx, tc.ID)
	defer func() {
		if r := recover(); r != nil {
			q.recorder.IncTaskOutcome(metrics.TaskPanicked)
			observability.ErrorContext(taskCtx, "Scheduled task panicked",
				logfields.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := it.task(taskCtx, q.handle, tc); err != nil {
		q.recorder.IncTaskOutcome(metrics.TaskFailed)
		observability.WarnContext(taskCtx, "Scheduled task failed", logfields.Error(err))
		return
	}
	q.recorder.IncTaskOutcome(metrics.TaskCompleted)
}

func (q *Queue[H]) drop(it queued[H], reason string) {
	q.recorder.IncTaskOutcome(metrics.TaskDropped)
	slog.Warn("Dropping scheduled task", logfields.TaskID(it.tc.ID), slog.String("reason", reason))
}
