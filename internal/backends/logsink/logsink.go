// Package logsink writes records to a structured logger. It is useful during
// development and as a broadcast target for auditing.
package logsink

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
)

// Kind is the publisher kind of this package.
const Kind publisher.Kind = "log"

// Publisher logs every record at a fixed level.
type Publisher struct {
	key    string
	level  slog.Level
	logger *slog.Logger
}

// New creates a log publisher. A nil logger uses slog.Default at publish time.
func New(key string, level slog.Level, logger *slog.Logger) *Publisher {
	return &Publisher{key: key, level: level, logger: logger}
}

func (p *Publisher) Key() string                      { return p.key }
func (p *Publisher) Kind() publisher.Kind             { return Kind }
func (p *Publisher) Initialize(context.Context) error { return nil }

// Publish logs r with one attribute group for tags and one for fields.
func (p *Publisher) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	logger := p.logger
	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(ctx, p.level) {
		return nil
	}

	tags := r.Tags()
	tagAttrs := make([]any, 0, len(tags))
	for _, k := range m.TagFields {
		if v, ok := tags[k]; ok {
			tagAttrs = append(tagAttrs, slog.String(k, v))
			delete(tags, k)
		}
	}
	for k, v := range tags {
		tagAttrs = append(tagAttrs, slog.String(k, v))
	}

	fieldAttrs := make([]any, 0, r.Len())
	for _, k := range r.FieldKeys() {
		v, _ := r.Field(k)
		if k == "" {
			k = "value"
		}
		fieldAttrs = append(fieldAttrs, slog.Float64(k, v))
	}

	logger.LogAttrs(ctx, p.level, "Record",
		logfields.Metric(m.NamespacedName()),
		logfields.MetricType(m.EffectiveType().String()),
		slog.Time("at", r.At()),
		slog.Group("tags", tagAttrs...),
		slog.Group("fields", fieldAttrs...),
	)
	return nil
}
