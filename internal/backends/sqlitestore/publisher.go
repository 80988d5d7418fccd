package sqlitestore

import (
	"context"
	"sync"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
)

// Kind is the publisher kind of this package.
const Kind publisher.Kind = "sqlite"

// Publisher stores records in a Store opened on Initialize.
type Publisher struct {
	key  string
	path string

	mu    sync.Mutex
	store *Store
}

// New creates a SQLite publisher for the database at path.
func New(key, path string) *Publisher {
	return &Publisher{key: key, path: path}
}

func (p *Publisher) Key() string          { return p.key }
func (p *Publisher) Kind() publisher.Kind { return Kind }

// Initialize opens the database. Further calls are no-ops.
func (p *Publisher) Initialize(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store != nil {
		return nil
	}
	s, err := Open(p.path)
	if err != nil {
		return err
	}
	p.store = s
	return nil
}

// Store returns the underlying store, nil before Initialize.
func (p *Publisher) Store() *Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store
}

// Publish appends r to the store.
func (p *Publisher) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	s := p.Store()
	if s == nil {
		return derrors.RuntimeError("sqlite publisher is not initialized").
			WithContext("publisher", p.key).
			Build()
	}
	return s.Append(ctx, r, m)
}

// Close closes the database.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}
