package agent

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/scheduler"
	"git.home.luguber.info/inful/metricbus/internal/service"
)

// runtimeMetricName is fanned out per field, e.g. <ns>_go_runtime_goroutines.
const runtimeMetricName = "go_runtime"

// runtimeSampler turns Go runtime statistics into records of one gauge.
type runtimeSampler struct {
	svc          *service.Service
	metric       *metric.Metric
	publisherKey string
	now          func() time.Time
}

func newRuntimeSampler(svc *service.Service, publisherKey string) (*runtimeSampler, error) {
	m := &metric.Metric{
		Name:        runtimeMetricName,
		Description: "Go runtime statistics of the metricbus agent",
		Type:        metric.Gauge,
		Kind:        "runtime",
	}
	if err := svc.RegisterMetric(m); err != nil {
		if !derrors.IsDuplicate(err) {
			return nil, err
		}
		existing, lerr := svc.LookupMetric(runtimeMetricName)
		if lerr != nil {
			return nil, lerr
		}
		m = existing
	}
	return &runtimeSampler{svc: svc, metric: m, publisherKey: publisherKey, now: time.Now}, nil
}

// sample snapshots the runtime now.
func (s *runtimeSampler) sample() metric.Record {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return metric.NewRecord(s.now(), nil, map[string]float64{
		"goroutines":       float64(runtime.NumGoroutine()),
		"heap_alloc_bytes": float64(ms.HeapAlloc),
		"heap_objects":     float64(ms.HeapObjects),
		"sys_bytes":        float64(ms.Sys),
		"gc_cycles":        float64(ms.NumGC),
	})
}

// enqueue samples immediately and queues the delivery on the service worker.
func (s *runtimeSampler) enqueue() {
	r := s.sample()
	m := s.metric
	key := s.publisherKey
	_, err := s.svc.Schedule(func(ctx context.Context, svc *service.Service, _ *scheduler.TaskContext) error {
		if key != "" {
			return svc.PublishTo(ctx, r, m, key)
		}
		return svc.Publish(ctx, r, m)
	})
	if err != nil {
		slog.Warn("Runtime sample dropped", logfields.Metric(m.NamespacedName()), logfields.Error(err))
	}
}
