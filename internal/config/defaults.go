package config

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

const (
	defaultNamespace   = "app"
	defaultQueueSize   = 1024
	defaultHTTPAddr    = ":9464"
	defaultMetricsPath = "/metrics"
	defaultShutdown    = 10 * time.Second
	defaultSampleEvery = 15 * time.Second
)

// applyDefaults fills unset values and case-folds enumerations. Unknown
// enumeration values are left in place for Validate to report.
func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if strings.TrimSpace(cfg.Service.Namespace) == "" {
		cfg.Service.Namespace = defaultNamespace
	}
	if cfg.Service.QueueSize <= 0 {
		cfg.Service.QueueSize = defaultQueueSize
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = defaultHTTPAddr
	}
	if cfg.HTTP.MetricsPath == "" {
		cfg.HTTP.MetricsPath = defaultMetricsPath
	}
	if cfg.HTTP.ShutdownIn <= 0 {
		cfg.HTTP.ShutdownIn = Duration(defaultShutdown)
	}

	if cfg.Sampler.Interval <= 0 {
		cfg.Sampler.Interval = Duration(defaultSampleEvery)
	}

	def := retry.DefaultPolicy()
	if cfg.Retry.Backoff == "" {
		cfg.Retry.Backoff = string(def.Mode)
	}
	if cfg.Retry.InitialDelay <= 0 {
		cfg.Retry.InitialDelay = Duration(def.Initial)
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = Duration(def.Max)
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}

	for i := range cfg.Publishers {
		p := &cfg.Publishers[i]
		if t, err := ParsePublisherType(string(p.Type)); err == nil {
			p.Type = t
		}
		if p.Key == "" {
			p.Key = string(p.Type)
		}
		applyPublisherDefaults(p)
	}

	for i := range cfg.Metrics {
		m := &cfg.Metrics[i]
		if t, err := metric.ParseType(m.Type); err == nil {
			m.Type = string(t)
		}
	}
}

func applyPublisherDefaults(p *PublisherConfig) {
	switch p.Type {
	case PublisherPrometheus:
		if p.Prometheus == nil {
			p.Prometheus = &PrometheusConfig{}
		}
		if p.Prometheus.Mode == "" {
			p.Prometheus.Mode = "http"
		}
		if p.Prometheus.Job == "" {
			p.Prometheus.Job = "metricbus"
		}
	case PublisherNATS:
		if p.NATS == nil {
			p.NATS = &NATSConfig{}
		}
		if p.NATS.URL == "" {
			p.NATS.URL = "nats://127.0.0.1:4222"
		}
		if p.NATS.Subject == "" {
			p.NATS.Subject = "metricbus.records"
		}
		if p.NATS.JetStream && p.NATS.Stream == "" {
			p.NATS.Stream = "METRICBUS"
		}
	case PublisherSQLite:
		if p.SQLite == nil {
			p.SQLite = &SQLiteConfig{}
		}
		if p.SQLite.Path == "" {
			p.SQLite.Path = "metricbus.db"
		}
	case PublisherRedis:
		if p.Redis == nil {
			p.Redis = &RedisConfig{}
		}
		if p.Redis.Addr == "" {
			p.Redis.Addr = "127.0.0.1:6379"
		}
		if p.Redis.Stream == "" {
			p.Redis.Stream = "metricbus:records"
		}
	case PublisherLog:
		if p.Log == nil {
			p.Log = &LogSinkConfig{}
		}
		p.Log.Level = NormalizeLogLevel(string(p.Log.Level))
	case PublisherBroadcast:
		if p.Broadcast == nil {
			p.Broadcast = &BroadcastConfig{}
		}
	case PublisherInflux:
		if p.Influx == nil {
			p.Influx = &InfluxConfig{}
		}
	}
}
