// Package responses defines the JSON bodies served by the agent's admin API.
package responses

import "time"

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Uptime      float64   `json:"uptime"`
	Namespace   string    `json:"namespace"`
	QueueLength int       `json:"queue_length"`
	Publishers  int       `json:"publishers"`
	Metrics     int       `json:"metrics"`
}

// MetricResponse describes one registered metric.
type MetricResponse struct {
	Name             string   `json:"name"`
	Namespace        string   `json:"namespace"`
	NamespacedName   string   `json:"namespaced_name"`
	Description      string   `json:"description,omitempty"`
	Type             string   `json:"type"`
	TagFields        []string `json:"tag_fields,omitempty"`
	Kind             string   `json:"kind,omitempty"`
	DefaultPublisher string   `json:"default_publisher,omitempty"`
}

// MetricsResponse lists the registered metrics.
type MetricsResponse struct {
	Metrics []MetricResponse `json:"metrics"`
	Count   int              `json:"count"`
}

// PublisherResponse describes one registered publisher.
type PublisherResponse struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

// PublishersResponse lists the registered publishers in registration order.
type PublishersResponse struct {
	Publishers []PublisherResponse `json:"publishers"`
	Count      int                 `json:"count"`
}

// RecordRequest is the body accepted by POST /api/records. Either Metric or
// Kind selects the metric. Value is shorthand for the single unnamed field.
type RecordRequest struct {
	Metric    string             `json:"metric,omitempty"`
	Kind      string             `json:"kind,omitempty"`
	At        *int64             `json:"at,omitempty"`
	Tags      map[string]string  `json:"tags,omitempty"`
	Fields    map[string]float64 `json:"fields,omitempty"`
	Value     *float64           `json:"value,omitempty"`
	Publisher string             `json:"publisher,omitempty"`
	Async     bool               `json:"async,omitempty"`
}

// RecordResponse reports how a submitted record was handled.
type RecordResponse struct {
	Status string `json:"status"`
	Metric string `json:"metric"`
	TaskID string `json:"task_id,omitempty"`
}
