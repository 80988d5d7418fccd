package service

import (
	"strings"
	"sync"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
)

// metricRegistry stores metrics by namespaced name in registration order.
type metricRegistry struct {
	namespace string

	mu     sync.RWMutex
	byName map[string]*metric.Metric
	order  []*metric.Metric
}

func newMetricRegistry(namespace string) *metricRegistry {
	return &metricRegistry{
		namespace: namespace,
		byName:    make(map[string]*metric.Metric),
	}
}

func (r *metricRegistry) register(m *metric.Metric) error {
	if m == nil {
		return derrors.ValidationError("metric cannot be nil").Build()
	}
	if m.Name == "" {
		return derrors.ValidationError("metric name is required").Build()
	}
	if strings.ContainsAny(m.Name, " \t\n") {
		return derrors.ValidationError("metric name must not contain whitespace").
			WithContext("name", m.Name).
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m.Namespace == "" {
		m.Namespace = r.namespace
	}
	name := m.NamespacedName()
	if _, exists := r.byName[name]; exists {
		return derrors.DuplicateError("metric has already been registered").
			WithContext("metric", name).
			Build()
	}
	r.byName[name] = m
	r.order = append(r.order, m)
	return nil
}

// qualify prefixes name with the service namespace unless it already carries it.
func (r *metricRegistry) qualify(name string) string {
	if r.namespace == "" || strings.HasPrefix(name, r.namespace+"_") {
		return name
	}
	return r.namespace + "_" + name
}

func (r *metricRegistry) lookup(name string) (*metric.Metric, error) {
	key := r.qualify(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.byName[key]; ok {
		return m, nil
	}
	return nil, derrors.NotFoundError("metric does not exist").
		WithContext("metric", key).
		Build()
}

func (r *metricRegistry) lookupKind(kind string) (*metric.Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.order {
		if kind != "" && m.Kind == kind {
			return m, nil
		}
	}
	return nil, derrors.NotFoundError("no metric of this kind is registered").
		WithContext("kind", kind).
		Build()
}

func (r *metricRegistry) all() []*metric.Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*metric.Metric, len(r.order))
	copy(out, r.order)
	return out
}
