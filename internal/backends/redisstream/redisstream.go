// Package redisstream appends records to a Redis stream with XADD.
package redisstream

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"git.home.luguber.info/inful/metricbus/internal/backends/wire"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
)

// Kind is the publisher kind of this package.
const Kind publisher.Kind = "redis"

// Options configures a Publisher.
type Options struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream approximately; zero leaves it unbounded.
	MaxLen int64
}

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Publisher writes one stream entry per record.
type Publisher struct {
	key  string
	opts Options

	mu  sync.Mutex
	rdb streamClient

	newClient func(Options) streamClient
}

// New creates a Redis stream publisher registered under key.
func New(key string, opts Options) *Publisher {
	if opts.Stream == "" {
		opts.Stream = "metricbus:records"
	}
	return &Publisher{key: key, opts: opts, newClient: newRedisClient}
}

func newRedisClient(o Options) streamClient {
	return redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
		PoolSize: 2,
	})
}

func (p *Publisher) Key() string          { return p.key }
func (p *Publisher) Kind() publisher.Kind { return Kind }

// Initialize creates the client and pings the server.
func (p *Publisher) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rdb != nil {
		return nil
	}

	rdb := p.newClient(p.opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to reach redis").
			Retryable().
			WithContext("addr", p.opts.Addr).
			Build()
	}
	p.rdb = rdb
	return nil
}

// Publish appends r to the stream. Entry values are the namespaced metric name,
// the timestamp in epoch milliseconds and the JSON envelope.
func (p *Publisher) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	p.mu.Lock()
	rdb := p.rdb
	p.mu.Unlock()
	if rdb == nil {
		return derrors.RuntimeError("redis publisher is not initialized").
			WithContext("publisher", p.key).
			Build()
	}

	payload, err := wire.Encode(r, m)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "failed to encode record").Build()
	}
	args := &redis.XAddArgs{
		Stream: p.opts.Stream,
		Values: map[string]any{
			"metric":  m.NamespacedName(),
			"at":      strconv.FormatInt(r.AtMillis(), 10),
			"payload": string(payload),
		},
	}
	if p.opts.MaxLen > 0 {
		args.MaxLen = p.opts.MaxLen
		args.Approx = true
	}
	if err := rdb.XAdd(ctx, args).Err(); err != nil {
		return derrors.WrapError(err, derrors.CategoryNetwork, "redis XADD failed").
			WithContext("stream", p.opts.Stream).
			Build()
	}
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rdb == nil {
		return nil
	}
	err := p.rdb.Close()
	p.rdb = nil
	return err
}
