package service

import (
	"context"
	"time"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/metrics"
	"git.home.luguber.info/inful/metricbus/internal/observability"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
)

// Publish sends r through the metric's default publisher kind, or the registry
// default when the metric names none.
func (s *Service) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	if m == nil {
		return derrors.ValidationError("metric cannot be nil").Build()
	}
	var (
		p   publisher.Publisher
		err error
	)
	if m.DefaultPublisher == "" {
		p, err = s.publishers.Default()
	} else {
		p, err = s.publishers.ByKind(publisher.Kind(m.DefaultPublisher))
	}
	if err != nil {
		s.recorder.IncPublishResult("", metrics.ResultNotFound)
		return err
	}
	return s.deliver(ctx, p, r, m)
}

// PublishTo sends r through the publisher registered under key.
func (s *Service) PublishTo(ctx context.Context, r metric.Record, m *metric.Metric, key string) error {
	p, err := s.publishers.ByKey(key)
	if err != nil {
		s.recorder.IncPublishResult(key, metrics.ResultNotFound)
		return err
	}
	return s.deliver(ctx, p, r, m)
}

// PublishVia sends r through the first publisher of kind.
func (s *Service) PublishVia(ctx context.Context, r metric.Record, m *metric.Metric, kind publisher.Kind) error {
	p, err := s.publishers.ByKind(kind)
	if err != nil {
		s.recorder.IncPublishResult(string(kind), metrics.ResultNotFound)
		return err
	}
	return s.deliver(ctx, p, r, m)
}

func (s *Service) deliver(ctx context.Context, p publisher.Publisher, r metric.Record, m *metric.Metric) error {
	if m == nil {
		return derrors.ValidationError("metric cannot be nil").Build()
	}
	key := p.Key()
	ctx = observability.WithNamespace(ctx, s.namespace)
	ctx = observability.WithMetric(observability.WithPublisher(ctx, key), m.NamespacedName())

	start := time.Now()
	err := p.Publish(ctx, r, m)
	elapsed := time.Since(start)
	s.recorder.ObservePublishDuration(key, elapsed)

	if err != nil {
		s.recorder.IncPublishResult(key, metrics.ResultFailed)
		observability.DebugContext(ctx, "Publish failed", logfields.Error(err))
		return derrors.WrapError(err, derrors.CategoryPublish, "publish failed").
			WithContext("publisher", key).
			WithContext("metric", m.NamespacedName()).
			Build()
	}
	s.recorder.IncPublishResult(key, metrics.ResultSuccess)
	observability.DebugContext(ctx, "Record published",
		logfields.Fields(r.Len()),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return nil
}
