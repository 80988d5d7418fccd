package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	publishDuration *prom.HistogramVec
	publishResults  *prom.CounterVec
	taskOutcomes    *prom.CounterVec
	queueLength     prom.Gauge
}

// NewPrometheusRecorder constructs the recorder's collectors and registers them
// with reg (a fresh registry when nil).
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		publishDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "metricbus",
			Name:      "publish_duration_seconds",
			Help:      "Duration of publish calls by publisher",
			Buckets:   prom.DefBuckets,
		}, []string{"publisher"}),
		publishResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "metricbus",
			Name:      "publish_results_total",
			Help:      "Publish outcomes by publisher and result",
		}, []string{"publisher", "result"}),
		taskOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "metricbus",
			Name:      "scheduled_tasks_total",
			Help:      "Scheduled task outcomes",
		}, []string{"outcome"}),
		queueLength: prom.NewGauge(prom.GaugeOpts{
			Namespace: "metricbus",
			Name:      "task_queue_length",
			Help:      "Tasks waiting for the service worker",
		}),
	}
	reg.MustRegister(pr.publishDuration, pr.publishResults, pr.taskOutcomes, pr.queueLength)
	return pr
}

func (p *PrometheusRecorder) ObservePublishDuration(publisher string, d time.Duration) {
	if p == nil {
		return
	}
	p.publishDuration.WithLabelValues(publisher).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPublishResult(publisher string, result ResultLabel) {
	if p == nil {
		return
	}
	p.publishResults.WithLabelValues(publisher, string(result)).Inc()
}

func (p *PrometheusRecorder) IncTaskOutcome(outcome TaskOutcome) {
	if p == nil {
		return
	}
	p.taskOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetQueueLength(n int) {
	if p == nil {
		return
	}
	p.queueLength.Set(float64(n))
}
