// Package natsbus publishes records as JSON messages on NATS, either with core
// publish or acknowledged into a JetStream stream.
package natsbus

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/metricbus/internal/backends/wire"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
)

// Kind is the publisher kind of this package.
const Kind publisher.Kind = "nats"

const connectTimeout = 5 * time.Second

// Options configures a Publisher.
type Options struct {
	URL string
	// Subject is the prefix; each record goes to Subject + "." + namespaced name.
	Subject   string
	JetStream bool
	Stream    string
}

// sender abstracts the core and JetStream publish paths.
type sender interface {
	send(ctx context.Context, subject string, data []byte) error
	close()
}

// Publisher sends one message per record.
type Publisher struct {
	key  string
	opts Options

	mu     sync.Mutex
	sender sender
}

// New creates a NATS publisher registered under key.
func New(key string, opts Options) *Publisher {
	if opts.Subject == "" {
		opts.Subject = "metricbus.records"
	}
	return &Publisher{key: key, opts: opts}
}

func (p *Publisher) Key() string          { return p.key }
func (p *Publisher) Kind() publisher.Kind { return Kind }

// Initialize connects to the server and, for JetStream, ensures the stream
// captures the subject hierarchy.
func (p *Publisher) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sender != nil {
		return nil
	}

	conn, err := nats.Connect(p.opts.URL,
		nats.Name("metricbus-"+p.key),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to connect to NATS").
			Retryable().
			WithContext("url", p.opts.URL).
			Build()
	}

	if !p.opts.JetStream {
		p.sender = coreSender{conn: conn}
		slog.Info("NATS publisher connected", logfields.Publisher(p.key), logfields.Addr(p.opts.URL))
		return nil
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to create JetStream context").Build()
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.opts.Stream,
		Description: "metricbus records",
		Subjects:    []string{p.opts.Subject + ".>"},
	}); err != nil {
		conn.Close()
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to ensure JetStream stream").
			WithContext("stream", p.opts.Stream).
			Build()
	}
	p.sender = jetStreamSender{conn: conn, js: js}
	slog.Info("NATS JetStream publisher connected",
		logfields.Publisher(p.key),
		logfields.Addr(p.opts.URL),
		slog.String("stream", p.opts.Stream))
	return nil
}

// Subject returns the subject a record of m is published on.
func (p *Publisher) Subject(m *metric.Metric) string {
	return p.opts.Subject + "." + subjectToken(m.NamespacedName())
}

// subjectToken replaces characters NATS treats as separators or wildcards.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}

// Publish sends r as a JSON envelope.
func (p *Publisher) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	p.mu.Lock()
	s := p.sender
	p.mu.Unlock()
	if s == nil {
		return derrors.RuntimeError("nats publisher is not initialized").
			WithContext("publisher", p.key).
			Build()
	}

	data, err := wire.Encode(r, m)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "failed to encode record").Build()
	}
	subject := p.Subject(m)
	if err := s.send(ctx, subject, data); err != nil {
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to publish record").
			WithContext("subject", subject).
			Build()
	}
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sender != nil {
		p.sender.close()
		p.sender = nil
	}
	return nil
}

type coreSender struct{ conn *nats.Conn }

func (c coreSender) send(_ context.Context, subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

func (c coreSender) close() { c.conn.Close() }

type jetStreamSender struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func (j jetStreamSender) send(ctx context.Context, subject string, data []byte) error {
	_, err := j.js.Publish(ctx, subject, data)
	return err
}

func (j jetStreamSender) close() { j.conn.Close() }
