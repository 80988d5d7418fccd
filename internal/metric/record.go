package metric

import (
	"maps"
	"slices"
	"time"
)

// Record is a single observation at one point in time. It is immutable: the
// accessors return copies.
type Record struct {
	at     time.Time
	tags   map[string]string
	fields map[string]float64
}

// NewRecord builds a record from the given maps. The maps are copied and at is
// truncated to millisecond precision.
func NewRecord(at time.Time, tags map[string]string, fields map[string]float64) Record {
	return Record{
		at:     at.Truncate(time.Millisecond),
		tags:   cloneOrEmpty(tags),
		fields: cloneOrEmpty(fields),
	}
}

func cloneOrEmpty[V any](m map[string]V) map[string]V {
	if len(m) == 0 {
		return map[string]V{}
	}
	return maps.Clone(m)
}

// At returns when the record was observed.
func (r Record) At() time.Time { return r.at }

// AtMillis returns At as milliseconds since the Unix epoch.
func (r Record) AtMillis() int64 { return r.at.UnixMilli() }

// Tags returns a copy of the record's tags.
func (r Record) Tags() map[string]string { return maps.Clone(r.tags) }

// Tag returns a single tag value.
func (r Record) Tag(key string) (string, bool) {
	v, ok := r.tags[key]
	return v, ok
}

// Fields returns a copy of the record's fields. The empty key holds an unnamed value.
func (r Record) Fields() map[string]float64 { return maps.Clone(r.fields) }

// Field returns a single field value.
func (r Record) Field(key string) (float64, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// FieldKeys returns the field keys in sorted order.
func (r Record) FieldKeys() []string {
	return slices.Sorted(maps.Keys(r.fields))
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// SingleField returns the only field of a record with exactly one field.
func (r Record) SingleField() (string, float64, bool) {
	if len(r.fields) != 1 {
		return "", 0, false
	}
	for k, v := range r.fields {
		return k, v, true
	}
	return "", 0, false
}
