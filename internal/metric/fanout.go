package metric

// FanOut splits r into single-field records for backends that cannot store
// several values in one data point. A record without fields yields nothing, a
// single-field record is returned unchanged, and otherwise every field becomes
// its own record sharing r's time and tags. Output follows sorted field keys.
func FanOut(r Record) []Record {
	switch len(r.fields) {
	case 0:
		return nil
	case 1:
		return []Record{r}
	}

	out := make([]Record, 0, len(r.fields))
	for _, key := range r.FieldKeys() {
		out = append(out, Record{
			at:     r.at,
			tags:   r.tags,
			fields: map[string]float64{key: r.fields[key]},
		})
	}
	return out
}

// PublishedName is the series name for one field of m: the namespaced name for
// the unnamed field, otherwise the namespaced name suffixed with "_" and the key.
func PublishedName(m *Metric, fieldKey string) string {
	if fieldKey == "" {
		return m.NamespacedName()
	}
	return m.NamespacedName() + "_" + fieldKey
}
