package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/metrics"
	"git.home.luguber.info/inful/metricbus/internal/observability"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
	"git.home.luguber.info/inful/metricbus/internal/scheduler"
)

// Task is a unit of work scheduled on the service queue.
type Task = scheduler.Task[*Service]

// Service owns the registries and the task queue for one namespace.
type Service struct {
	namespace  string
	metrics    *metricRegistry
	publishers *publisher.Registry
	queue      *scheduler.Queue[*Service]
	recorder   metrics.Recorder
	now        func() time.Time
}

// Option configures a Service.
type Option func(*options)

type options struct {
	recorder  metrics.Recorder
	queueSize int
	now       func() time.Time
}

// WithRecorder installs a self-instrumentation recorder for publishes and tasks.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithQueueSize bounds the number of tasks waiting on the queue.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a service for namespace. Metrics registered without a namespace
// inherit it. The queue does not run until Start.
func New(namespace string, opts ...Option) *Service {
	o := options{recorder: metrics.NoopRecorder{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		namespace:  namespace,
		metrics:    newMetricRegistry(namespace),
		publishers: publisher.NewRegistry(),
		recorder:   o.recorder,
		now:        o.now,
	}
	s.queue = scheduler.NewQueue(s,
		scheduler.WithSize(o.queueSize),
		scheduler.WithRecorder(o.recorder),
	)
	return s
}

// Namespace returns the service namespace.
func (s *Service) Namespace() string { return s.namespace }

// Publishers exposes the publisher registry.
func (s *Service) Publishers() *publisher.Registry { return s.publishers }

// RegisterMetric adds m, filling in the service namespace when m has none.
// A namespaced name that is already registered is rejected and the existing
// metric stays in place.
func (s *Service) RegisterMetric(m *metric.Metric) error {
	if err := s.metrics.register(m); err != nil {
		return err
	}
	slog.Debug("Metric registered",
		logfields.Metric(m.NamespacedName()),
		logfields.MetricType(m.EffectiveType().String()))
	return nil
}

// LookupMetric finds a metric by name, with or without the namespace prefix.
func (s *Service) LookupMetric(name string) (*metric.Metric, error) {
	return s.metrics.lookup(name)
}

// LookupMetricKind returns the first registered metric tagged with kind.
func (s *Service) LookupMetricKind(kind string) (*metric.Metric, error) {
	return s.metrics.lookupKind(kind)
}

// Metrics returns the registered metrics in registration order.
func (s *Service) Metrics() []*metric.Metric {
	return s.metrics.all()
}

// RegisterPublisher initializes p and makes it available for dispatch.
func (s *Service) RegisterPublisher(ctx context.Context, p publisher.Publisher) error {
	return s.publishers.Register(ctx, p)
}

// SetDefaultPublisher pins the publisher used for metrics without a default kind.
func (s *Service) SetDefaultPublisher(key string) error {
	return s.publishers.SetDefault(key)
}

// Record starts a builder for the metric registered under name.
func (s *Service) Record(name string) (*Builder, error) {
	m, err := s.metrics.lookup(name)
	if err != nil {
		return nil, err
	}
	return newBuilder(s, m), nil
}

// RecordKind starts a builder for the first metric tagged with kind.
func (s *Service) RecordKind(kind string) (*Builder, error) {
	m, err := s.metrics.lookupKind(kind)
	if err != nil {
		return nil, err
	}
	return newBuilder(s, m), nil
}

// Schedule queues task for immediate asynchronous execution.
func (s *Service) Schedule(task Task) (*scheduler.TaskContext, error) {
	return s.queue.Schedule(task)
}

// ScheduleDelayed queues task to run after delay. The delay holds the single
// worker, so tasks queued later wait too.
func (s *Service) ScheduleDelayed(task Task, delay time.Duration) (*scheduler.TaskContext, error) {
	return s.queue.ScheduleDelayed(task, delay)
}

// SchedulePeriodic always fails; use scheduler.Periodic for repeating work.
func (s *Service) SchedulePeriodic(task Task, delay, period time.Duration) (*scheduler.TaskContext, error) {
	return s.queue.SchedulePeriodic(task, delay, period)
}

// QueueLength returns the number of tasks waiting on the queue.
func (s *Service) QueueLength() int { return s.queue.Len() }

// Start launches the queue worker.
func (s *Service) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Close drains the queue, bounded by ctx, then closes every publisher.
func (s *Service) Close(ctx context.Context) error {
	qErr := s.queue.Stop(ctx)
	pErr := s.publishers.Close()
	observability.InfoContext(observability.WithNamespace(ctx, s.namespace), "Service closed",
		slog.Int("publishers", s.publishers.Len()),
		slog.Int("metrics", len(s.metrics.all())))
	return errors.Join(qErr, pErr)
}
