// Package metric defines what is measured (Metric) and single observations of it (Record).
//
// A Metric is registered once with a service and names a quantity, its type and
// the ordered tag keys its records may carry. A Record is an immutable,
// timestamped set of tags and numeric fields. Backends that can only store one
// value per data point use FanOut to split a multi-field record and
// PublishedName to derive the per-field series name:
//
//	for _, sub := range metric.FanOut(rec) {
//		key, value, _ := sub.SingleField()
//		name := metric.PublishedName(m, key)
//		// write name/value with sub.Tags() to the backend
//	}
package metric
