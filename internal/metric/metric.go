package metric

import (
	"git.home.luguber.info/inful/metricbus/internal/foundation/normalization"
)

// Type specifies how a metric tracks its records. Not every backend supports
// every type.
type Type string

const (
	// Counter only ever increases.
	Counter Type = "counter"
	// Gauge can increase and decrease. It is the default.
	Gauge Type = "gauge"
	// Histogram stores observations in threshold buckets.
	Histogram Type = "histogram"
	// Summary stores observations as quantiles.
	Summary Type = "summary"
)

var typeNormalizer = normalization.NewNormalizer("metric type", map[string]Type{
	"counter":   Counter,
	"gauge":     Gauge,
	"histogram": Histogram,
	"summary":   Summary,
}, Gauge)

// ParseType converts configuration input into a Type. Empty input yields Gauge.
func ParseType(raw string) (Type, error) {
	return typeNormalizer.NormalizeWithError(raw)
}

// String returns the type name, defaulting an unset type to gauge.
func (t Type) String() string {
	if t == "" {
		return string(Gauge)
	}
	return string(t)
}

// Metric describes a measurable quantity. It is registered by pointer because
// registration fills in Namespace when it is empty.
type Metric struct {
	// Name is a short identifier without spaces, e.g. "players_online".
	Name string
	// Description is a human-readable summary used as help text by backends.
	Description string
	// Type defaults to Gauge when empty.
	Type Type
	// TagFields lists the tag keys records may carry. Order is significant for
	// backends that match labels positionally.
	TagFields []string
	// Namespace prefixes the public name. Registration sets it to the service
	// namespace when empty.
	Namespace string
	// Kind is an optional tag used to look the metric up by kind instead of name.
	Kind string
	// DefaultPublisher is the publisher kind used when a record is published
	// without an explicit target. Empty selects the registry default.
	DefaultPublisher string
}

// EffectiveType returns Type, or Gauge when unset.
func (m *Metric) EffectiveType() Type {
	if m.Type == "" {
		return Gauge
	}
	return m.Type
}

// NamespacedName returns "namespace_name", or just name without a namespace.
func (m *Metric) NamespacedName() string {
	if m.Namespace == "" {
		return m.Name
	}
	return m.Namespace + "_" + m.Name
}

// TagValues returns the record's tag values ordered by TagFields. Missing tags
// yield empty strings so the result always has len(TagFields) entries.
func (m *Metric) TagValues(r Record) []string {
	values := make([]string, len(m.TagFields))
	for i, key := range m.TagFields {
		values[i] = r.tags[key]
	}
	return values
}
