// Package middleware wraps the agent's admin handlers with request IDs, access
// logging and panic recovery.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// RequestIDHeader carries the request ID in both directions. An incoming value
// is reused so callers can correlate their own logs.
const RequestIDHeader = "X-Request-ID"

// Chain returns the wrapper applied to every admin route.
func Chain(logger *slog.Logger, adapter *derrors.HTTPErrorAdapter) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return &instrumented{logger: logger, adapter: adapter, next: next}
	}
}

type instrumented struct {
	logger  *slog.Logger
	adapter *derrors.HTTPErrorAdapter
	next    http.Handler
}

func (h *instrumented) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	start := time.Now()
	rw := &recordingWriter{ResponseWriter: w}
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.LogAttrs(r.Context(), slog.LevelError, "Admin handler panicked",
				slog.Any("panic", rec),
				logfields.RequestID(id),
				logfields.Method(r.Method),
				logfields.Path(r.URL.Path))
			h.adapter.WriteErrorResponse(rw, r, derrors.InternalError("internal server error").
				WithContext("request_id", id).
				Build())
		}
		h.access(r, rw, id, time.Since(start))
	}()

	h.next.ServeHTTP(rw, r)
}

// access logs one line per request. Successful reads (scrapes, listings) log
// at debug.
func (h *instrumented) access(r *http.Request, rw *recordingWriter, id string, elapsed time.Duration) {
	status := rw.statusCode()
	level := slog.LevelInfo
	if r.Method == http.MethodGet && status < http.StatusBadRequest {
		level = slog.LevelDebug
	}
	h.logger.LogAttrs(r.Context(), level, "Admin request",
		logfields.RequestID(id),
		logfields.Method(r.Method),
		logfields.Path(r.URL.Path),
		logfields.Status(status),
		logfields.Bytes(rw.written),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000),
		logfields.UserAgent(r.UserAgent()),
		logfields.RemoteAddr(r.RemoteAddr))
}

// recordingWriter remembers the status and body size.
type recordingWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rw *recordingWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func (rw *recordingWriter) statusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *recordingWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
