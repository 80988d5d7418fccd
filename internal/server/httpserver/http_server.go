// Package httpserver wires the agent's admin API, scrape endpoints and self
// instrumentation onto one HTTP listener.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/server/handlers"
	smw "git.home.luguber.info/inful/metricbus/internal/server/middleware"
	"git.home.luguber.info/inful/metricbus/internal/service"
)

const defaultMetricsPath = "/metrics"

// Server manages the admin HTTP endpoint.
type Server struct {
	opts         Options
	srv          *http.Server
	ln           net.Listener
	errorAdapter *derrors.HTTPErrorAdapter
	apiHandlers  *handlers.APIHandlers

	// middleware chain
	mchain func(http.Handler) http.Handler
}

// New constructs the server for svc. Nothing is bound until Start.
func New(svc *service.Service, startTime time.Time, opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = defaultMetricsPath
	}
	s := &Server{
		opts:         opts,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
	}
	s.apiHandlers = handlers.NewAPIHandlers(svc, startTime, s.errorAdapter)
	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.apiHandlers.HandleHealthCheck)
	mux.HandleFunc("/api/metrics", s.apiHandlers.HandleMetrics)
	mux.HandleFunc("/api/publishers", s.apiHandlers.HandlePublishers)
	mux.HandleFunc("/api/records", s.apiHandlers.HandleRecord)

	base := strings.TrimSuffix(s.opts.MetricsPath, "/")
	for i, ep := range s.opts.Scrape {
		path := base
		if i > 0 {
			path = base + "/" + ep.Key
		}
		mux.Handle(path, ep.Handler)
	}
	if s.opts.SelfMetrics != nil {
		mux.Handle("/internal/metrics", s.opts.SelfMetrics)
	}

	return s.mchain(mux)
}

// Start binds the listen address and serves in the background. Binding
// happens before Start returns so an address in use fails fast.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryNetwork, "http startup failed").
			WithContext("addr", s.opts.Addr).
			Build()
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("admin server error", logfields.Error(err))
		}
	}()

	slog.Info("HTTP server started",
		slog.String("addr", ln.Addr().String()),
		logfields.Path(s.opts.MetricsPath),
		slog.Int("scrape_endpoints", len(s.opts.Scrape)))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.opts.Addr
}

// Stop gracefully shuts the server down, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}
