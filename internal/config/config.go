// Package config loads the metricbus YAML configuration: service settings,
// publisher definitions and metric declarations.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// CurrentVersion is the configuration format version this build reads.
const CurrentVersion = "1.0"

// Config is the root configuration document.
type Config struct {
	Version    string            `yaml:"version"`
	Service    ServiceConfig     `yaml:"service"`
	Logging    LoggingConfig     `yaml:"logging"`
	HTTP       HTTPConfig        `yaml:"http"`
	Sampler    SamplerConfig     `yaml:"sampler"`
	Retry      RetryConfig       `yaml:"retry"`
	Publishers []PublisherConfig `yaml:"publishers"`
	Metrics    []MetricConfig    `yaml:"metrics"`
}

// ServiceConfig holds settings of the service core.
type ServiceConfig struct {
	Namespace        string `yaml:"namespace"`
	QueueSize        int    `yaml:"queue_size"`
	DefaultPublisher string `yaml:"default_publisher,omitempty"` // publisher key; empty = first registered
}

// HTTPConfig configures the agent's admin server.
type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	MetricsPath string   `yaml:"metrics_path"`
	SelfMetrics bool     `yaml:"self_metrics"`
	ShutdownIn  Duration `yaml:"shutdown_timeout"`
}

// SamplerConfig configures the periodic Go runtime sampler.
type SamplerConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Interval  Duration `yaml:"interval"`
	Cron      string   `yaml:"cron,omitempty"`      // five-field cron; overrides interval
	Publisher string   `yaml:"publisher,omitempty"` // publisher key; empty = registry default
}

// RetryConfig configures backoff for backend pushes and writes.
type RetryConfig struct {
	Backoff      string   `yaml:"backoff"`
	InitialDelay Duration `yaml:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay"`
	MaxRetries   int      `yaml:"max_retries"`
}

// MetricConfig declares a metric to register at startup.
type MetricConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Type        string   `yaml:"type,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	Namespace   string   `yaml:"namespace,omitempty"`
	Kind        string   `yaml:"kind,omitempty"`
	Publisher   string   `yaml:"publisher,omitempty"` // publisher kind
}

// Load reads, expands, normalizes, defaults and validates the configuration at
// path. Variables from .env files are loaded first and ${VAR} references in the
// file are expanded from the environment.
func Load(path string) (*Config, error) {
	if loaded, err := loadEnvFiles(); err == nil {
		slog.Debug("Loaded environment variables", logfields.Path(loaded))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, derrors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to unmarshal config").Build()
	}

	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, derrors.ConfigError(fmt.Sprintf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)).
			Build()
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return derrors.DuplicateError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "failed to marshal example config").Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
