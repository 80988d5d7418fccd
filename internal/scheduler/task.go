// Package scheduler runs service tasks asynchronously on a single worker.
//
// Queue is the base scheduler: one goroutine drains a FIFO channel, so tasks
// run strictly in submission order and never in parallel. A delayed task holds
// the worker for its delay right before it runs, which also delays every task
// queued behind it. Periodic execution is deliberately not part of Queue;
// Periodic wraps gocron for callers that need it.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"
)

// Task is a unit of work run by a Queue. handle is the queue's owner (the
// service) and tc describes how the task was scheduled.
type Task[H any] func(ctx context.Context, handle H, tc *TaskContext) error

// TaskContext carries scheduling metadata for one task.
type TaskContext struct {
	// ID uniquely identifies the scheduled task.
	ID string
	// Delay is how long the worker waits right before running the task.
	Delay time.Duration
	// Period is the requested repeat interval; zero for one-shot tasks.
	Period time.Duration
	// ScheduledAt is when the task was submitted.
	ScheduledAt time.Time

	cancelled atomic.Bool
}

// Cancel marks the task as cancelled. The queue never checks the flag; task
// bodies decide whether to honor it, so cancelling a running task has no effect
// unless the body looks.
func (tc *TaskContext) Cancel() { tc.cancelled.Store(true) }

// Cancelled reports whether Cancel was called.
func (tc *TaskContext) Cancelled() bool { return tc.cancelled.Load() }
