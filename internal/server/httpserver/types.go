package httpserver

import "net/http"

// ScrapeEndpoint exposes one pull-mode publisher's registry.
type ScrapeEndpoint struct {
	Key     string
	Handler http.Handler
}

// Options configures the admin server.
type Options struct {
	// Addr is the listen address, e.g. ":9464".
	Addr string
	// MetricsPath is where the first scrape endpoint is mounted. Further
	// endpoints are mounted at MetricsPath/<key>.
	MetricsPath string
	Scrape      []ScrapeEndpoint
	// SelfMetrics serves the agent's own instrumentation at /internal/metrics
	// when non-nil.
	SelfMetrics http.Handler
}
