// Package prometheus publishes records as Prometheus collectors, served over
// HTTP by the agent, pushed to a Pushgateway, or both.
package prometheus

import (
	"context"
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/foundation/normalization"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/observability"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

// Kind is the publisher kind of this package.
const Kind publisher.Kind = "prometheus"

// Mode selects how collected values leave the process.
type Mode string

const (
	ModeHTTP Mode = "http"
	ModePush Mode = "push"
	ModeBoth Mode = "both"
)

var modeNormalizer = normalization.NewNormalizer("prometheus mode", map[string]Mode{
	"http":        ModeHTTP,
	"http_server": ModeHTTP,
	"push":        ModePush,
	"pushgateway": ModePush,
	"both":        ModeBoth,
}, ModeHTTP)

// ParseMode converts configuration input into a Mode, case-insensitively.
func ParseMode(raw string) (Mode, error) {
	return modeNormalizer.NormalizeWithError(raw)
}

func (m Mode) serves() bool { return m == ModeHTTP || m == ModeBoth }
func (m Mode) pushes() bool { return m == ModePush || m == ModeBoth }

// Options configures a Publisher.
type Options struct {
	Mode     Mode
	PushURL  string
	Job      string
	Username string
	Password string
	// Buckets for histogram metrics; prometheus.DefBuckets when empty.
	Buckets []float64
	Retry   retry.Policy
}

// Publisher keeps one collector per published series name.
type Publisher struct {
	key  string
	opts Options

	mu          sync.Mutex
	initialized bool
	registry    *prom.Registry
	series      map[string]*series
}

// New creates a Prometheus publisher registered under key.
func New(key string, opts Options) *Publisher {
	if opts.Mode == "" {
		opts.Mode = ModeHTTP
	}
	if opts.Job == "" {
		opts.Job = "metricbus"
	}
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.NoRetry()
	}
	return &Publisher{
		key:    key,
		opts:   opts,
		series: make(map[string]*series),
	}
}

func (p *Publisher) Key() string          { return p.key }
func (p *Publisher) Kind() publisher.Kind { return Kind }

// Mode returns the configured publishing mode.
func (p *Publisher) Mode() Mode { return p.opts.Mode }

// Initialize creates the collector registry. Further calls are no-ops.
func (p *Publisher) Initialize(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if p.opts.Mode.pushes() && p.opts.PushURL == "" {
		return derrors.ConfigError("pushgateway URL is required to push").
			WithContext("publisher", p.key).
			Build()
	}
	p.registry = prom.NewRegistry()
	p.initialized = true
	return nil
}

// Gatherer exposes the registry backing the HTTP exposition.
func (p *Publisher) Gatherer() prom.Gatherer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registry == nil {
		return prom.NewRegistry()
	}
	return p.registry
}

// ServesHTTP reports whether the agent should expose this publisher's registry.
func (p *Publisher) ServesHTTP() bool { return p.opts.Mode.serves() }

// Handler serves the exposition format for the collectors this publisher owns.
func (p *Publisher) Handler() http.Handler {
	return promhttp.HandlerFor(p.Gatherer(), promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Publish records every field of r on its collector. Every field is resolved
// and validated before any collector changes, so a rejected record leaves no
// partial update. In push modes the touched collectors are then added to the
// Pushgateway group of the configured job.
func (p *Publisher) Publish(ctx context.Context, r metric.Record, m *metric.Metric) error {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return derrors.RuntimeError("prometheus publisher is not initialized").
			WithContext("publisher", p.key).
			Build()
	}

	touched, err := p.apply(m.TagValues(r), metric.FanOut(r), m)
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if !p.opts.Mode.pushes() || len(touched) == 0 {
		return nil
	}
	return p.push(ctx, touched)
}

// apply runs under p.mu. New series are registered only once every field has
// validated, and updates are applied last.
func (p *Publisher) apply(labels []string, subs []metric.Record, m *metric.Metric) ([]prom.Collector, error) {
	var (
		updates []func()
		touched []prom.Collector
		created = map[string]*series{}
	)
	for _, sub := range subs {
		key, value, _ := sub.SingleField()
		name := metric.PublishedName(m, key)

		s, err := p.seriesFor(name, m, created)
		if err != nil {
			return nil, err
		}
		update, err := s.prepare(labels, value)
		if err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryValidation, "failed to record value").
				WithContext("series", name).
				Build()
		}
		updates = append(updates, update)
		touched = append(touched, s.collector)
	}

	if err := p.commitSeries(created); err != nil {
		return nil, err
	}
	for _, update := range updates {
		update()
	}
	return touched, nil
}

// seriesFor returns the collector for name, or a new unregistered one recorded
// in created. A name already owned by another metric is rejected.
func (p *Publisher) seriesFor(name string, m *metric.Metric, created map[string]*series) (*series, error) {
	s, ok := p.series[name]
	if !ok {
		s, ok = created[name]
	}
	if !ok {
		s = newSeries(name, m, p.opts.Buckets)
		created[name] = s
		return s, nil
	}
	if s.owner != m.NamespacedName() {
		return nil, derrors.ValidationError("series name is already used by another metric").
			WithContext("series", name).
			WithContext("metric", m.NamespacedName()).
			WithContext("owner", s.owner).
			Build()
	}
	return s, nil
}

// commitSeries registers new series for HTTP exposition. On failure the ones
// registered so far are removed again.
func (p *Publisher) commitSeries(created map[string]*series) error {
	if p.opts.Mode.serves() {
		var done []prom.Collector
		for name, s := range created {
			if err := p.registry.Register(s.collector); err != nil {
				for _, c := range done {
					p.registry.Unregister(c)
				}
				return derrors.WrapError(err, derrors.CategoryValidation, "failed to register collector").
					WithContext("series", name).
					Build()
			}
			done = append(done, s.collector)
		}
	}
	for name, s := range created {
		p.series[name] = s
	}
	return nil
}

func (p *Publisher) push(ctx context.Context, collectors []prom.Collector) error {
	reg := prom.NewRegistry()
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return derrors.WrapError(err, derrors.CategoryInternal, "failed to stage collector for push").Build()
		}
	}

	pusher := push.New(p.opts.PushURL, p.opts.Job).Gatherer(reg)
	if p.opts.Username != "" {
		pusher = pusher.BasicAuth(p.opts.Username, p.opts.Password)
	}

	return p.opts.Retry.Do(ctx, func(ctx context.Context) error {
		if err := pusher.AddContext(ctx); err != nil {
			observability.DebugContext(ctx, "Pushgateway push failed", logfields.Error(err))
			return derrors.WrapError(err, derrors.CategoryNetwork, "pushgateway push failed").
				Retryable().
				WithContext("url", p.opts.PushURL).
				WithContext("job", p.opts.Job).
				Build()
		}
		return nil
	})
}
