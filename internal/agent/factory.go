package agent

import (
	"log/slog"

	"git.home.luguber.info/inful/metricbus/internal/backends/broadcast"
	"git.home.luguber.info/inful/metricbus/internal/backends/influx"
	"git.home.luguber.info/inful/metricbus/internal/backends/logsink"
	"git.home.luguber.info/inful/metricbus/internal/backends/natsbus"
	"git.home.luguber.info/inful/metricbus/internal/backends/prometheus"
	"git.home.luguber.info/inful/metricbus/internal/backends/redisstream"
	"git.home.luguber.info/inful/metricbus/internal/backends/sqlitestore"
	"git.home.luguber.info/inful/metricbus/internal/config"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

// Factory builds a publisher from its configuration block. resolver looks up
// publishers registered earlier, which broadcast publishers fan out to.
type Factory func(pc config.PublisherConfig, policy retry.Policy, resolver broadcast.Resolver) (publisher.Publisher, error)

// DefaultFactory builds every publisher type the configuration knows.
func DefaultFactory(pc config.PublisherConfig, policy retry.Policy, resolver broadcast.Resolver) (publisher.Publisher, error) {
	switch pc.Type {
	case config.PublisherPrometheus:
		mode, err := prometheus.ParseMode(pc.Prometheus.Mode)
		if err != nil {
			return nil, err
		}
		return prometheus.New(pc.Key, prometheus.Options{
			Mode:     mode,
			PushURL:  pc.Prometheus.PushURL,
			Job:      pc.Prometheus.Job,
			Username: pc.Prometheus.Username,
			Password: pc.Prometheus.Password,
			Buckets:  pc.Prometheus.Buckets,
			Retry:    policy,
		}), nil
	case config.PublisherInflux:
		return influx.New(pc.Key, influx.Options{
			URL:    pc.Influx.URL,
			Token:  pc.Influx.Token,
			Org:    pc.Influx.Org,
			Bucket: pc.Influx.Bucket,
			Retry:  policy,
		}), nil
	case config.PublisherNATS:
		return natsbus.New(pc.Key, natsbus.Options{
			URL:       pc.NATS.URL,
			Subject:   pc.NATS.Subject,
			JetStream: pc.NATS.JetStream,
			Stream:    pc.NATS.Stream,
		}), nil
	case config.PublisherSQLite:
		return sqlitestore.New(pc.Key, pc.SQLite.Path), nil
	case config.PublisherRedis:
		return redisstream.New(pc.Key, redisstream.Options{
			Addr:     pc.Redis.Addr,
			Password: pc.Redis.Password,
			DB:       pc.Redis.DB,
			Stream:   pc.Redis.Stream,
			MaxLen:   pc.Redis.MaxLen,
		}), nil
	case config.PublisherLog:
		return logsink.New(pc.Key, pc.Log.Level.Slog(), slog.Default()), nil
	case config.PublisherBroadcast:
		return broadcast.New(pc.Key, resolver, pc.Broadcast.Targets, pc.Broadcast.MaxConcurrency), nil
	default:
		return nil, derrors.UnsupportedError("unknown publisher type").
			WithContext("key", pc.Key).
			WithContext("type", string(pc.Type)).
			Build()
	}
}
