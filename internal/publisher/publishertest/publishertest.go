// Package publishertest provides an in-memory publisher for tests.
package publishertest

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
)

// Published is one captured Publish call.
type Published struct {
	Record metric.Record
	Metric *metric.Metric
}

// Capture records every published record. Set Err to make Publish fail and
// InitErr to make Initialize fail.
type Capture struct {
	KeyName  string
	KindName publisher.Kind
	Err      error
	InitErr  error

	mu        sync.Mutex
	inits     int
	published []Published
	closed    bool
}

// New returns a capture publisher with the given key and kind.
func New(key string, kind publisher.Kind) *Capture {
	return &Capture{KeyName: key, KindName: kind}
}

func (c *Capture) Key() string          { return c.KeyName }
func (c *Capture) Kind() publisher.Kind { return c.KindName }

func (c *Capture) Initialize(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inits++
	return c.InitErr
}

func (c *Capture) Publish(_ context.Context, r metric.Record, m *metric.Metric) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.published = append(c.published, Published{Record: r, Metric: m})
	return nil
}

func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Published returns a copy of the captured calls.
func (c *Capture) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Published, len(c.published))
	copy(out, c.published)
	return out
}

// Inits returns how many times Initialize was called.
func (c *Capture) Inits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inits
}

// Closed reports whether Close was called.
func (c *Capture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
