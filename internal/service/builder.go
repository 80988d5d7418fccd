package service

import (
	"context"
	"maps"
	"time"

	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/scheduler"
)

// Builder accumulates one record for a metric. Build returns an immutable
// snapshot, so a builder may be reused to emit several records. A Builder is
// not safe for concurrent use.
type Builder struct {
	svc    *Service
	metric *metric.Metric

	at     time.Time
	tags   map[string]string
	fields map[string]float64
}

func newBuilder(s *Service, m *metric.Metric) *Builder {
	return &Builder{
		svc:    s,
		metric: m,
		tags:   make(map[string]string),
		fields: make(map[string]float64),
	}
}

// Metric returns the metric the builder emits records for.
func (b *Builder) Metric() *metric.Metric { return b.metric }

// At sets the observation time. Without it Build uses the current time.
func (b *Builder) At(t time.Time) *Builder {
	b.at = t
	return b
}

// Tag sets a tag. Empty keys are ignored.
func (b *Builder) Tag(key, value string) *Builder {
	if key != "" {
		b.tags[key] = value
	}
	return b
}

// Tags sets several tags at once.
func (b *Builder) Tags(tags map[string]string) *Builder {
	for k, v := range tags {
		b.Tag(k, v)
	}
	return b
}

// Field sets a named value.
func (b *Builder) Field(key string, value float64) *Builder {
	b.fields[key] = value
	return b
}

// FieldInt sets a named integer value.
func (b *Builder) FieldInt(key string, value int64) *Builder {
	return b.Field(key, float64(value))
}

// Value sets the unnamed default field.
func (b *Builder) Value(value float64) *Builder {
	return b.Field("", value)
}

// ValueInt sets the unnamed default field from an integer.
func (b *Builder) ValueInt(value int64) *Builder {
	return b.Field("", float64(value))
}

// Build snapshots the accumulated state into a Record.
func (b *Builder) Build() metric.Record {
	at := b.at
	if at.IsZero() {
		at = b.svc.now()
	}
	return metric.NewRecord(at, maps.Clone(b.tags), maps.Clone(b.fields))
}

// Publish builds the record now and queues its delivery through the metric's
// default publisher. Delivery errors end the task; they are logged and counted
// but never returned here.
func (b *Builder) Publish() (*scheduler.TaskContext, error) {
	r := b.Build()
	m := b.metric
	return b.svc.Schedule(func(ctx context.Context, s *Service, _ *scheduler.TaskContext) error {
		return s.Publish(ctx, r, m)
	})
}

// PublishSync builds the record and delivers it on the calling goroutine.
func (b *Builder) PublishSync(ctx context.Context) error {
	return b.svc.Publish(ctx, b.Build(), b.metric)
}

// PublishTo builds the record and delivers it synchronously through the
// publisher registered under key.
func (b *Builder) PublishTo(ctx context.Context, key string) error {
	return b.svc.PublishTo(ctx, b.Build(), b.metric, key)
}
