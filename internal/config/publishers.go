package config

import (
	"git.home.luguber.info/inful/metricbus/internal/foundation/normalization"
)

// PublisherType names a publisher implementation.
type PublisherType string

const (
	PublisherPrometheus PublisherType = "prometheus"
	PublisherInflux     PublisherType = "influx"
	PublisherNATS       PublisherType = "nats"
	PublisherSQLite     PublisherType = "sqlite"
	PublisherRedis      PublisherType = "redis"
	PublisherLog        PublisherType = "log"
	PublisherBroadcast  PublisherType = "broadcast"
)

var publisherTypeNormalizer = normalization.NewNormalizer("publisher type", map[string]PublisherType{
	"prometheus": PublisherPrometheus,
	"influx":     PublisherInflux,
	"influxdb":   PublisherInflux,
	"nats":       PublisherNATS,
	"sqlite":     PublisherSQLite,
	"redis":      PublisherRedis,
	"log":        PublisherLog,
	"broadcast":  PublisherBroadcast,
}, "")

// ParsePublisherType converts configuration input into a PublisherType.
func ParsePublisherType(raw string) (PublisherType, error) {
	return publisherTypeNormalizer.NormalizeWithError(raw)
}

// PublisherConfig defines one publisher. Exactly the block matching Type is read.
type PublisherConfig struct {
	Key        string            `yaml:"key"`
	Type       PublisherType     `yaml:"type"`
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`
	Influx     *InfluxConfig     `yaml:"influx,omitempty"`
	NATS       *NATSConfig       `yaml:"nats,omitempty"`
	SQLite     *SQLiteConfig     `yaml:"sqlite,omitempty"`
	Redis      *RedisConfig      `yaml:"redis,omitempty"`
	Log        *LogSinkConfig    `yaml:"log,omitempty"`
	Broadcast  *BroadcastConfig  `yaml:"broadcast,omitempty"`
}

// PrometheusConfig configures the Prometheus publisher. Mode is http, push or
// both. In http mode the agent serves the exposition.
type PrometheusConfig struct {
	Mode     string    `yaml:"mode"`
	PushURL  string    `yaml:"push_url,omitempty"`
	Job      string    `yaml:"job,omitempty"`
	Username string    `yaml:"username,omitempty"`
	Password string    `yaml:"password,omitempty"`
	Buckets  []float64 `yaml:"buckets,omitempty"`
}

// InfluxConfig configures the InfluxDB v2 publisher.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// NATSConfig configures the NATS publisher. With JetStream set, records are
// published with acknowledgement into Stream, which is created when missing.
type NATSConfig struct {
	URL       string `yaml:"url"`
	Subject   string `yaml:"subject"`
	JetStream bool   `yaml:"jetstream"`
	Stream    string `yaml:"stream,omitempty"`
}

// SQLiteConfig configures the SQLite record store.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the Redis stream publisher.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// LogSinkConfig configures the log publisher.
type LogSinkConfig struct {
	Level LogLevel `yaml:"level"`
}

// BroadcastConfig fans each record out to several registered publishers.
type BroadcastConfig struct {
	Targets        []string `yaml:"targets"`
	MaxConcurrency int      `yaml:"max_concurrency"`
}
