package metrics

import "time"

// ResultLabel enumerates publish result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultNotFound ResultLabel = "not_found"
)

// TaskOutcome enumerates how a scheduled task ended.
type TaskOutcome string

const (
	TaskCompleted TaskOutcome = "completed"
	TaskFailed    TaskOutcome = "failed"
	TaskPanicked  TaskOutcome = "panicked"
	TaskDropped   TaskOutcome = "dropped"
)

// Recorder defines self-observability hooks. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObservePublishDuration(publisher string, d time.Duration)
	IncPublishResult(publisher string, result ResultLabel)
	IncTaskOutcome(outcome TaskOutcome)
	SetQueueLength(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePublishDuration(string, time.Duration) {}
func (NoopRecorder) IncPublishResult(string, ResultLabel)         {}
func (NoopRecorder) IncTaskOutcome(TaskOutcome)                   {}
func (NoopRecorder) SetQueueLength(int)                           {}
