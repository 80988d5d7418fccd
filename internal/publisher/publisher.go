// Package publisher defines the contract every monitoring backend implements and
// the registry the service resolves publishers from.
package publisher

import (
	"context"

	"git.home.luguber.info/inful/metricbus/internal/metric"
)

// Kind identifies a publisher implementation, e.g. "prometheus" or "influx".
// Several publishers of the same kind may be registered under different keys.
type Kind string

// Publisher delivers records to an external monitoring backend.
type Publisher interface {
	// Key is the stable unique identifier the publisher is registered under.
	Key() string
	// Kind names the implementation, used for lookups by kind.
	Kind() Kind
	// Initialize connects to or starts the backend. It is called once per
	// registration and must be a no-op when called again.
	Initialize(ctx context.Context) error
	// Publish delivers r, described by m. Failures are backend-defined and are
	// returned to the caller unchanged.
	Publish(ctx context.Context, r metric.Record, m *metric.Metric) error
}
