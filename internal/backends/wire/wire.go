// Package wire is the JSON envelope used by message-oriented publishers
// (NATS, Redis streams) so consumers can decode records without the metric
// registry.
package wire

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/metricbus/internal/metric"
)

// Envelope is one record with enough metric metadata to interpret it.
type Envelope struct {
	Metric      string             `json:"metric"`
	Name        string             `json:"name"`
	Namespace   string             `json:"namespace,omitempty"`
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	At          int64              `json:"at"` // epoch milliseconds
	Tags        map[string]string  `json:"tags,omitempty"`
	Fields      map[string]float64 `json:"fields"`
}

// NewEnvelope describes r as a record of m.
func NewEnvelope(r metric.Record, m *metric.Metric) Envelope {
	return Envelope{
		Metric:      m.NamespacedName(),
		Name:        m.Name,
		Namespace:   m.Namespace,
		Type:        m.EffectiveType().String(),
		Description: m.Description,
		At:          r.AtMillis(),
		Tags:        r.Tags(),
		Fields:      r.Fields(),
	}
}

// Encode marshals the envelope of r.
func Encode(r metric.Record, m *metric.Metric) ([]byte, error) {
	return json.Marshal(NewEnvelope(r, m))
}

// Decode unmarshals an envelope.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// Record rebuilds the record carried by e.
func (e Envelope) Record() metric.Record {
	return metric.NewRecord(time.UnixMilli(e.At), e.Tags, e.Fields)
}
