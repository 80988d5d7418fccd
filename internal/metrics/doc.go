// Package metrics instruments metricbus itself: publish latency and outcomes,
// scheduled task outcomes and queue depth.
//
// Components receive a Recorder and default to NoopRecorder, so instrumentation
// never needs nil checks:
//
//	svc := service.New("game", service.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// These are not the application metrics flowing through the service; they
// describe the service's own health and are exported under the "metricbus"
// namespace.
package metrics
