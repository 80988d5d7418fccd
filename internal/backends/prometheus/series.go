package prometheus

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/metricbus/internal/metric"
)

var defaultObjectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

// series is one labelled collector; the metric type decides how values land.
// owner is the namespaced name of the metric that created it.
type series struct {
	owner     string
	typ       metric.Type
	collector prom.Collector
	counter   *prom.CounterVec
	gauge     *prom.GaugeVec
	observer  prom.ObserverVec
}

func newSeries(name string, m *metric.Metric, buckets []float64) *series {
	help := m.Description
	if help == "" {
		help = name
	}
	labels := m.TagFields

	s := &series{owner: m.NamespacedName(), typ: m.EffectiveType()}
	switch s.typ {
	case metric.Counter:
		s.counter = prom.NewCounterVec(prom.CounterOpts{Name: name, Help: help}, labels)
		s.collector = s.counter
	case metric.Histogram:
		if len(buckets) == 0 {
			buckets = prom.DefBuckets
		}
		h := prom.NewHistogramVec(prom.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
		s.observer, s.collector = h, h
	case metric.Summary:
		sv := prom.NewSummaryVec(prom.SummaryOpts{Name: name, Help: help, Objectives: defaultObjectives}, labels)
		s.observer, s.collector = sv, sv
	default:
		s.gauge = prom.NewGaugeVec(prom.GaugeOpts{Name: name, Help: help}, labels)
		s.collector = s.gauge
	}
	return s
}

// prepare resolves the labelled child for value and returns the update to
// apply, changing nothing yet. Counters reject negative values.
func (s *series) prepare(labels []string, value float64) (func(), error) {
	switch s.typ {
	case metric.Counter:
		if value < 0 {
			return nil, fmt.Errorf("counter cannot decrease by %v", value)
		}
		c, err := s.counter.GetMetricWithLabelValues(labels...)
		if err != nil {
			return nil, err
		}
		return func() { c.Add(value) }, nil
	case metric.Histogram, metric.Summary:
		o, err := s.observer.GetMetricWithLabelValues(labels...)
		if err != nil {
			return nil, err
		}
		return func() { o.Observe(value) }, nil
	default:
		g, err := s.gauge.GetMetricWithLabelValues(labels...)
		if err != nil {
			return nil, err
		}
		return func() { g.Set(value) }, nil
	}
}
