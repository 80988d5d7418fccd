package config

import "time"

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		Version: CurrentVersion,
		Service: ServiceConfig{
			Namespace:        "game",
			QueueSize:        defaultQueueSize,
			DefaultPublisher: "prom",
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatAuto},
		HTTP: HTTPConfig{
			Addr:        defaultHTTPAddr,
			MetricsPath: defaultMetricsPath,
			SelfMetrics: true,
			ShutdownIn:  Duration(defaultShutdown),
		},
		Sampler: SamplerConfig{Enabled: true, Interval: Duration(defaultSampleEvery)},
		Retry: RetryConfig{
			Backoff:      "exponential",
			InitialDelay: Duration(time.Second),
			MaxDelay:     Duration(30 * time.Second),
			MaxRetries:   2,
		},
		Publishers: []PublisherConfig{
			{
				Key:        "prom",
				Type:       PublisherPrometheus,
				Prometheus: &PrometheusConfig{Mode: "http", Job: "metricbus"},
			},
			{
				Key:  "influx",
				Type: PublisherInflux,
				Influx: &InfluxConfig{
					URL:    "http://localhost:8086",
					Token:  "${INFLUX_TOKEN}",
					Org:    "my-org",
					Bucket: "metrics",
				},
			},
			{
				Key:    "store",
				Type:   PublisherSQLite,
				SQLite: &SQLiteConfig{Path: "metricbus.db"},
			},
			{
				Key:       "everywhere",
				Type:      PublisherBroadcast,
				Broadcast: &BroadcastConfig{Targets: []string{"prom", "store"}, MaxConcurrency: 4},
			},
		},
		Metrics: []MetricConfig{
			{
				Name:        "players_online",
				Description: "Players currently connected",
				Type:        "gauge",
				Tags:        []string{"server"},
				Kind:        "players",
			},
			{
				Name:        "tps",
				Description: "Server ticks per second",
				Type:        "gauge",
				Tags:        []string{"server", "world"},
				Publisher:   "influx",
			},
			{
				Name:        "chat_messages",
				Description: "Chat messages sent",
				Type:        "counter",
				Tags:        []string{"server"},
			},
		},
	}
}
