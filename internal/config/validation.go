package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

// Validate checks a defaulted configuration. All problems are reported in one
// config-category error.
func Validate(cfg *Config) error {
	v := &validator{cfg: cfg}
	v.service()
	v.publishers()
	v.metrics()
	v.retry()
	if len(v.errs) == 0 {
		return nil
	}
	return derrors.WrapError(errors.Join(v.errs...), derrors.CategoryConfig, "configuration validation failed").
		WithContext("problems", len(v.errs)).
		Build()
}

type validator struct {
	cfg  *Config
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) service() {
	if strings.ContainsAny(v.cfg.Service.Namespace, " \t") {
		v.addf("service.namespace must not contain whitespace")
	}
	if !strings.HasPrefix(v.cfg.HTTP.MetricsPath, "/") {
		v.addf("http.metrics_path must start with /")
	}
	if c := v.cfg.Sampler.Cron; c != "" && len(strings.Fields(c)) != 5 {
		v.addf("sampler.cron %q must have five fields", c)
	}
}

func (v *validator) publishers() {
	keys := make(map[string]bool, len(v.cfg.Publishers))
	for i, p := range v.cfg.Publishers {
		where := fmt.Sprintf("publishers[%d]", i)
		if _, err := ParsePublisherType(string(p.Type)); err != nil || p.Type == "" {
			v.addf("%s: %v", where, typeError(err))
			continue
		}
		if keys[p.Key] {
			v.addf("%s: duplicate publisher key %q", where, p.Key)
		}
		keys[p.Key] = true
		v.publisherBlock(where, p)
	}

	if def := v.cfg.Service.DefaultPublisher; def != "" && !keys[def] {
		v.addf("service.default_publisher %q is not a configured publisher key", def)
	}
	if sp := v.cfg.Sampler.Publisher; sp != "" && !keys[sp] {
		v.addf("sampler.publisher %q is not a configured publisher key", sp)
	}

	for i, p := range v.cfg.Publishers {
		if p.Type != PublisherBroadcast || p.Broadcast == nil {
			continue
		}
		for _, target := range p.Broadcast.Targets {
			switch {
			case target == p.Key:
				v.addf("publishers[%d]: broadcast cannot target itself", i)
			case !keys[target]:
				v.addf("publishers[%d]: broadcast target %q is not a configured publisher key", i, target)
			}
		}
	}
}

func typeError(err error) error {
	if err != nil {
		return err
	}
	return errors.New("publisher type is required")
}

func (v *validator) publisherBlock(where string, p PublisherConfig) {
	switch p.Type {
	case PublisherPrometheus:
		mode := strings.ToLower(p.Prometheus.Mode)
		if !slices.Contains([]string{"http", "push", "both"}, mode) {
			v.addf("%s: prometheus.mode must be http, push or both, got %q", where, p.Prometheus.Mode)
		}
		if mode == "push" || mode == "both" {
			if p.Prometheus.PushURL == "" {
				v.addf("%s: prometheus.push_url is required for mode %s", where, mode)
			} else if _, err := url.ParseRequestURI(p.Prometheus.PushURL); err != nil {
				v.addf("%s: prometheus.push_url: %v", where, err)
			}
		}
	case PublisherInflux:
		if p.Influx.URL == "" || p.Influx.Org == "" || p.Influx.Bucket == "" {
			v.addf("%s: influx.url, influx.org and influx.bucket are required", where)
		}
	case PublisherNATS:
		if strings.ContainsAny(p.NATS.Subject, " \t") {
			v.addf("%s: nats.subject must not contain whitespace", where)
		}
	case PublisherRedis:
		if p.Redis.MaxLen < 0 {
			v.addf("%s: redis.max_len cannot be negative", where)
		}
	case PublisherBroadcast:
		if len(p.Broadcast.Targets) == 0 {
			v.addf("%s: broadcast.targets must list at least one publisher key", where)
		}
	}
}

func (v *validator) metrics() {
	seen := make(map[string]bool, len(v.cfg.Metrics))
	for i, mc := range v.cfg.Metrics {
		m, err := mc.Metric()
		if err != nil {
			v.addf("metrics[%d]: %v", i, err)
			continue
		}
		if m.Namespace == "" {
			m.Namespace = v.cfg.Service.Namespace
		}
		name := m.NamespacedName()
		if seen[name] {
			v.addf("metrics[%d]: duplicate metric %q", i, name)
		}
		seen[name] = true
	}
}

func (v *validator) retry() {
	if _, err := retry.ParseMode(v.cfg.Retry.Backoff); err != nil {
		v.addf("retry.backoff: %v", err)
	}
	if err := v.cfg.Retry.Policy().Validate(); err != nil {
		v.addf("retry: %v", err)
	}
}

// Metric converts the declaration into a metric definition. Namespace stays
// empty unless set so registration applies the service namespace.
func (mc MetricConfig) Metric() (*metric.Metric, error) {
	if mc.Name == "" {
		return nil, errors.New("metric name is required")
	}
	if strings.ContainsAny(mc.Name, " \t") {
		return nil, fmt.Errorf("metric name %q must not contain whitespace", mc.Name)
	}
	t, err := metric.ParseType(mc.Type)
	if err != nil {
		return nil, err
	}
	return &metric.Metric{
		Name:             mc.Name,
		Description:      mc.Description,
		Type:             t,
		TagFields:        slices.Clone(mc.Tags),
		Namespace:        mc.Namespace,
		Kind:             mc.Kind,
		DefaultPublisher: mc.Publisher,
	}, nil
}

// Policy converts the retry settings; invalid values fall back to defaults.
func (rc RetryConfig) Policy() retry.Policy {
	mode, _ := retry.ParseMode(rc.Backoff)
	return retry.NewPolicy(mode, rc.InitialDelay.Std(), rc.MaxDelay.Std(), rc.MaxRetries)
}
