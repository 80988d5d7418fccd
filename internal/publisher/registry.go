package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// Registry holds initialized publishers keyed by Key, remembering registration
// order for kind lookups and the default selection. It is safe for concurrent use.
//
// Registrations are serialized by regMu while mu guards the maps. Initialize
// runs with only regMu held, so a publisher may look up earlier registrations
// (broadcast resolves its targets this way).
type Registry struct {
	regMu      sync.Mutex
	mu         sync.RWMutex
	byKey      map[string]Publisher
	order      []string
	defaultKey string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Publisher)}
}

// Register initializes p and stores it under p.Key(). A key that is already
// registered is rejected without touching the existing entry or calling
// Initialize. A failed Initialize rejects the registration as well.
func (r *Registry) Register(ctx context.Context, p Publisher) error {
	if p == nil {
		return derrors.ValidationError("publisher cannot be nil").Build()
	}
	key := p.Key()
	if key == "" {
		return derrors.ValidationError("publisher key is required").
			WithContext("kind", string(p.Kind())).
			Build()
	}

	r.regMu.Lock()
	defer r.regMu.Unlock()

	r.mu.RLock()
	_, exists := r.byKey[key]
	r.mu.RUnlock()
	if exists {
		return duplicateKey(key)
	}
	if err := p.Initialize(ctx); err != nil {
		return derrors.WrapError(err, derrors.CategoryPublish, "publisher initialization failed").
			WithContext("key", key).
			WithContext("kind", string(p.Kind())).
			Build()
	}

	r.mu.Lock()
	r.byKey[key] = p
	r.order = append(r.order, key)
	r.mu.Unlock()
	slog.Debug("Publisher registered", logfields.Publisher(key), logfields.Kind(string(p.Kind())))
	return nil
}

func duplicateKey(key string) error {
	return derrors.DuplicateError("publisher has already been registered").
		WithContext("key", key).
		Build()
}

// ByKey returns the publisher registered under key.
func (r *Registry) ByKey(key string) (Publisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.byKey[key]; ok {
		return p, nil
	}
	return nil, derrors.NotFoundError("publisher does not exist").
		WithContext("key", key).
		Build()
}

// ByKind returns the first registered publisher of the given kind.
func (r *Registry) ByKind(kind Kind) (Publisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.order {
		if p := r.byKey[key]; p.Kind() == kind {
			return p, nil
		}
	}
	return nil, derrors.NotFoundError("no publisher of this kind is registered").
		WithContext("kind", string(kind)).
		Build()
}

// SetDefault pins the publisher returned by Default. The key must already be
// registered.
func (r *Registry) SetDefault(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[key]; !ok {
		return derrors.NotFoundError("default publisher does not exist").
			WithContext("key", key).
			Build()
	}
	r.defaultKey = key
	return nil
}

// Default returns the pinned default publisher, or the first one registered.
func (r *Registry) Default() (Publisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultKey != "" {
		return r.byKey[r.defaultKey], nil
	}
	if len(r.order) == 0 {
		return nil, derrors.NotFoundError("no publisher has been registered").Build()
	}
	return r.byKey[r.order[0]], nil
}

// All returns the registered publishers in registration order.
func (r *Registry) All() []Publisher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Publisher, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// Len returns the number of registered publishers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Close closes every publisher that implements io.Closer, newest first.
func (r *Registry) Close() error {
	r.mu.RLock()
	keys := slices.Clone(r.order)
	r.mu.RUnlock()

	var errs []error
	for _, key := range slices.Backward(keys) {
		r.mu.RLock()
		p := r.byKey[key]
		r.mu.RUnlock()
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close publisher %s: %w", key, err))
			}
		}
	}
	return errors.Join(errs...)
}
