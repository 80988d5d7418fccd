package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
)

// Periodic wraps a gocron scheduler for repeating jobs such as the runtime
// sampler. It is separate from Queue so the queue keeps its strict FIFO order.
type Periodic struct {
	scheduler gocron.Scheduler
}

// NewPeriodic creates a periodic scheduler. Jobs registered before Start wait
// until Start is called.
func NewPeriodic() (*Periodic, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Periodic{scheduler: s}, nil
}

// Start begins running registered jobs.
func (p *Periodic) Start(_ context.Context) {
	slog.Info("Starting periodic scheduler", slog.Int("jobs", len(p.scheduler.Jobs())))
	p.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs to return.
func (p *Periodic) Stop(_ context.Context) error {
	slog.Info("Stopping periodic scheduler")
	return p.scheduler.Shutdown()
}

// ScheduleEvery runs fn every interval and returns the job ID. Overlapping runs
// of the same job are skipped.
func (p *Periodic) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", derrors.ValidationError("interval must be positive").
			WithContext("name", name).
			WithContext("interval", interval.String()).
			Build()
	}
	return p.newJob(name, gocron.DurationJob(interval), fn)
}

// ScheduleCron runs fn on a standard five-field cron expression.
func (p *Periodic) ScheduleCron(name, expr string, fn func()) (string, error) {
	return p.newJob(name, gocron.CronJob(expr, false), fn)
}

func (p *Periodic) newJob(name string, def gocron.JobDefinition, fn func()) (string, error) {
	if fn == nil {
		return "", derrors.ValidationError("job function cannot be nil").WithContext("name", name).Build()
	}
	job, err := p.scheduler.NewJob(
		def,
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", derrors.WrapError(err, derrors.CategoryValidation, "failed to create periodic job").
			WithContext("name", name).
			Build()
	}
	return job.ID().String(), nil
}
