// Package influx writes records to InfluxDB v2 as one point per record.
package influx

import (
	"context"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

// Kind is the publisher kind of this package.
const Kind publisher.Kind = "influx"

// DefaultField is the field name used for a record's unnamed value.
const DefaultField = "value"

// Options configures a Publisher.
type Options struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	Retry  retry.Policy
}

// Publisher writes points through the blocking write API so failures reach
// the caller.
type Publisher struct {
	key  string
	opts Options

	mu     sync.Mutex
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

// New creates an InfluxDB publisher registered under key.
func New(key string, opts Options) *Publisher {
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.NoRetry()
	}
	return &Publisher{key: key, opts: opts}
}

func (p *Publisher) Key() string          { return p.key }
func (p *Publisher) Kind() publisher.Kind { return Kind }

// Initialize creates the client. It does not contact the server.
func (p *Publisher) Initialize(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return nil
	}
	if p.opts.URL == "" || p.opts.Org == "" || p.opts.Bucket == "" {
		return derrors.ConfigError("influx url, org and bucket are required").
			WithContext("publisher", p.key).
			Build()
	}
	options := influxdb2.DefaultOptions().SetPrecision(time.Millisecond)
	p.client = influxdb2.NewClientWithOptions(p.opts.URL, p.opts.Token, options)
	p.writer = p.client.WriteAPIBlocking(p.opts.Org, p.opts.Bucket)
	return nil
}

// Publish writes r as a point measured under the metric's namespaced name
// carrying every tag and field at millisecond precision.
func (p *Publisher) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	p.mu.Lock()
	writer := p.writer
	p.mu.Unlock()
	if writer == nil {
		return derrors.RuntimeError("influx publisher is not initialized").
			WithContext("publisher", p.key).
			Build()
	}
	if r.Len() == 0 {
		return nil
	}

	point := Point(r, m)
	return p.opts.Retry.Do(ctx, func(ctx context.Context) error {
		if err := writer.WritePoint(ctx, point); err != nil {
			return derrors.WrapError(err, derrors.CategoryNetwork, "influx write failed").
				Retryable().
				WithContext("url", p.opts.URL).
				WithContext("bucket", p.opts.Bucket).
				Build()
		}
		return nil
	})
}

// Point converts r into a line-protocol point. The unnamed field is written as
// DefaultField unless the record also carries an explicit field of that name.
func Point(r metric.Record, m *metric.Metric) *write.Point {
	fields := make(map[string]any, r.Len())
	for k, v := range r.Fields() {
		if k != "" {
			fields[k] = v
		}
	}
	if v, ok := r.Field(""); ok {
		if _, taken := fields[DefaultField]; !taken {
			fields[DefaultField] = v
		}
	}
	return influxdb2.NewPoint(m.NamespacedName(), r.Tags(), fields, r.At())
}

// Close releases the client's idle connections.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client, p.writer = nil, nil
	}
	return nil
}
