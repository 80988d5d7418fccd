// Package broadcast delivers each record to several registered publishers in
// parallel.
package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
)

// Kind is the publisher kind of this package.
const Kind publisher.Kind = "broadcast"

// Resolver looks up target publishers by key; *publisher.Registry satisfies it.
type Resolver interface {
	ByKey(key string) (publisher.Publisher, error)
}

// Publisher forwards records to its targets. Targets must be registered before
// the broadcast publisher itself.
type Publisher struct {
	key            string
	targetKeys     []string
	resolver       Resolver
	maxConcurrency int

	mu      sync.Mutex
	targets []publisher.Publisher
}

// New creates a broadcast publisher over targetKeys. maxConcurrency <= 0 means
// one goroutine per target.
func New(key string, resolver Resolver, targetKeys []string, maxConcurrency int) *Publisher {
	return &Publisher{
		key:            key,
		targetKeys:     append([]string(nil), targetKeys...),
		resolver:       resolver,
		maxConcurrency: maxConcurrency,
	}
}

func (p *Publisher) Key() string          { return p.key }
func (p *Publisher) Kind() publisher.Kind { return Kind }

// Initialize resolves every target once. Targets are already initialized by
// their own registration.
func (p *Publisher) Initialize(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.targets != nil {
		return nil
	}
	if len(p.targetKeys) == 0 {
		return derrors.ConfigError("broadcast publisher needs at least one target").
			WithContext("publisher", p.key).
			Build()
	}

	targets := make([]publisher.Publisher, 0, len(p.targetKeys))
	for _, key := range p.targetKeys {
		if key == p.key {
			return derrors.ConfigError("broadcast publisher cannot target itself").
				WithContext("publisher", p.key).
				Build()
		}
		t, err := p.resolver.ByKey(key)
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}
	p.targets = targets
	return nil
}

// Publish sends r to every target and waits for all of them. Failures of
// individual targets are joined; the other targets still receive the record.
func (p *Publisher) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	p.mu.Lock()
	targets := p.targets
	p.mu.Unlock()
	if targets == nil {
		return derrors.RuntimeError("broadcast publisher is not initialized").
			WithContext("publisher", p.key).
			Build()
	}

	limit := p.maxConcurrency
	if limit <= 0 || limit > len(targets) {
		limit = len(targets)
	}
	wp := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(limit)
	for _, t := range targets {
		wp.Go(func(ctx context.Context) error {
			if err := t.Publish(ctx, r, m); err != nil {
				return fmt.Errorf("%s: %w", t.Key(), err)
			}
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		return derrors.WrapError(err, derrors.CategoryPublish, "broadcast delivery failed").
			WithContext("publisher", p.key).
			Build()
	}
	return nil
}
