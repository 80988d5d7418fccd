// Package agent runs a metric service as a long-lived process: it builds
// publishers and metrics from configuration, serves the admin HTTP API, samples
// Go runtime statistics and picks up new metric declarations when the
// configuration file changes.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/metricbus/internal/backends/prometheus"
	"git.home.luguber.info/inful/metricbus/internal/config"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/metrics"
	"git.home.luguber.info/inful/metricbus/internal/scheduler"
	"git.home.luguber.info/inful/metricbus/internal/server/httpserver"
	"git.home.luguber.info/inful/metricbus/internal/service"
)

// Agent owns a configured service and the collaborators around it.
type Agent struct {
	cfg        *config.Config
	configPath string
	factory    Factory
	svc        *service.Service
	self       *prom.Registry

	server   *httpserver.Server
	periodic *scheduler.Periodic
	watcher  *ConfigWatcher
	sampler  *runtimeSampler
}

// Option customizes an Agent.
type Option func(*Agent)

// WithConfigPath enables the configuration watcher on path.
func WithConfigPath(path string) Option {
	return func(a *Agent) { a.configPath = path }
}

// WithFactory replaces the publisher factory.
func WithFactory(f Factory) Option {
	return func(a *Agent) { a.factory = f }
}

// New builds the service described by cfg. Publishers are initialized in
// configuration order, broadcast publishers last so their targets exist. On
// failure every publisher registered so far is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Agent, error) {
	a := &Agent{cfg: cfg, factory: DefaultFactory}
	for _, opt := range opts {
		opt(a)
	}

	svcOpts := []service.Option{service.WithQueueSize(cfg.Service.QueueSize)}
	if cfg.HTTP.SelfMetrics {
		a.self = prom.NewRegistry()
		a.self.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svcOpts = append(svcOpts, service.WithRecorder(metrics.NewPrometheusRecorder(a.self)))
	}
	a.svc = service.New(cfg.Service.Namespace, svcOpts...)

	if err := a.registerPublishers(ctx); err != nil {
		_ = a.svc.Publishers().Close()
		return nil, err
	}
	if err := a.registerMetrics(cfg.Metrics); err != nil {
		_ = a.svc.Publishers().Close()
		return nil, err
	}
	if cfg.Sampler.Enabled {
		s, err := newRuntimeSampler(a.svc, cfg.Sampler.Publisher)
		if err != nil {
			_ = a.svc.Publishers().Close()
			return nil, err
		}
		a.sampler = s
	}
	return a, nil
}

// Service returns the underlying metric service.
func (a *Agent) Service() *service.Service { return a.svc }

func (a *Agent) registerPublishers(ctx context.Context) error {
	policy := a.cfg.Retry.Policy()
	ordered := make([]config.PublisherConfig, 0, len(a.cfg.Publishers))
	var deferred []config.PublisherConfig
	for _, pc := range a.cfg.Publishers {
		if pc.Type == config.PublisherBroadcast {
			deferred = append(deferred, pc)
			continue
		}
		ordered = append(ordered, pc)
	}
	ordered = append(ordered, deferred...)

	for _, pc := range ordered {
		p, err := a.factory(pc, policy, a.svc.Publishers())
		if err != nil {
			return err
		}
		if err := a.svc.RegisterPublisher(ctx, p); err != nil {
			return err
		}
		slog.Info("Publisher ready", logfields.Publisher(pc.Key), logfields.Kind(string(pc.Type)))
	}

	if key := a.cfg.Service.DefaultPublisher; key != "" {
		if err := a.svc.SetDefaultPublisher(key); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) registerMetrics(decls []config.MetricConfig) error {
	_, err := registerDeclared(a.svc, decls)
	return err
}

// registerDeclared registers declarations, skipping names that already exist,
// and returns how many were added.
func registerDeclared(svc *service.Service, decls []config.MetricConfig) (int, error) {
	added := 0
	for _, mc := range decls {
		m, err := mc.Metric()
		if err != nil {
			return added, derrors.WrapError(err, derrors.CategoryConfig, "invalid metric declaration").
				WithContext("metric", mc.Name).
				Build()
		}
		if err := svc.RegisterMetric(m); err != nil {
			if derrors.IsDuplicate(err) {
				slog.Debug("Metric already registered", logfields.Metric(m.NamespacedName()))
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

// scrapeEndpoints collects the pull-mode Prometheus publishers.
func (a *Agent) scrapeEndpoints() []httpserver.ScrapeEndpoint {
	var out []httpserver.ScrapeEndpoint
	for _, p := range a.svc.Publishers().All() {
		pp, ok := p.(*prometheus.Publisher)
		if !ok || !pp.ServesHTTP() {
			continue
		}
		out = append(out, httpserver.ScrapeEndpoint{Key: pp.Key(), Handler: pp.Handler()})
	}
	return out
}

func (a *Agent) selfMetricsHandler() http.Handler {
	if a.self == nil {
		return nil
	}
	return promhttp.HandlerFor(a.self, promhttp.HandlerOpts{})
}

// Run starts every collaborator, blocks until ctx ends, then shuts down in
// reverse order within the configured shutdown timeout.
func (a *Agent) Run(ctx context.Context) error {
	started := time.Now()

	// The queue must outlive ctx so shutdown can drain it.
	a.svc.Start(context.WithoutCancel(ctx))

	a.server = httpserver.New(a.svc, started, httpserver.Options{
		Addr:        a.cfg.HTTP.Addr,
		MetricsPath: a.cfg.HTTP.MetricsPath,
		Scrape:      a.scrapeEndpoints(),
		SelfMetrics: a.selfMetricsHandler(),
	})
	if err := a.server.Start(ctx); err != nil {
		return errors.Join(err, a.shutdown())
	}

	if a.sampler != nil {
		p, err := scheduler.NewPeriodic()
		if err != nil {
			return errors.Join(err, a.shutdown())
		}
		a.periodic = p
		if cron := a.cfg.Sampler.Cron; cron != "" {
			_, err = p.ScheduleCron("runtime-sampler", cron, a.sampler.enqueue)
		} else {
			_, err = p.ScheduleEvery("runtime-sampler", a.cfg.Sampler.Interval.Std(), a.sampler.enqueue)
		}
		if err != nil {
			return errors.Join(err, a.shutdown())
		}
		p.Start(ctx)
	}

	if a.configPath != "" {
		w, err := NewConfigWatcher(a.configPath, a.reload)
		if err != nil {
			return errors.Join(err, a.shutdown())
		}
		a.watcher = w
		if err := w.Start(ctx); err != nil {
			return errors.Join(err, a.shutdown())
		}
	}

	slog.Info("Agent running",
		logfields.Namespace(a.svc.Namespace()),
		logfields.Addr(a.server.Addr()),
		slog.Int("publishers", a.svc.Publishers().Len()),
		slog.Int("metrics", len(a.svc.Metrics())))

	<-ctx.Done()
	slog.Info("Agent stopping")
	return a.shutdown()
}

// Addr returns the admin server address once Run has started it.
func (a *Agent) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

func (a *Agent) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownIn.Std())
	defer cancel()

	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop(ctx))
	}
	if a.periodic != nil {
		errs = append(errs, a.periodic.Stop(ctx))
	}
	if a.server != nil {
		errs = append(errs, a.server.Stop(ctx))
	}
	errs = append(errs, a.svc.Close(ctx))
	return errors.Join(errs...)
}

// reload applies a changed configuration file. Only new metric declarations
// take effect; publisher and service changes need a restart.
func (a *Agent) reload(cfg *config.Config) error {
	if cfg.Service.Namespace != a.cfg.Service.Namespace {
		slog.Warn("Namespace change requires restart",
			logfields.Namespace(cfg.Service.Namespace))
	}
	if !samePublishers(a.cfg.Publishers, cfg.Publishers) {
		slog.Warn("Publisher changes require restart")
	}
	added, err := registerDeclared(a.svc, cfg.Metrics)
	if err != nil {
		return err
	}
	slog.Info("Configuration reloaded", slog.Int("metrics_added", added))
	return nil
}

func samePublishers(a, b []config.PublisherConfig) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || a[i].Type != b[i].Type {
			return false
		}
	}
	return true
}
