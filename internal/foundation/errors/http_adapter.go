package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// retryAfterSeconds is advertised when an error can be retried right away,
// such as a full task queue.
const retryAfterSeconds = 1

// HTTPErrorAdapter writes classified errors as JSON responses.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates an adapter logging to logger, or slog.Default when nil.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse represents a standard JSON error payload.
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

var statusByCategory = map[ErrorCategory]int{
	CategoryValidation:    http.StatusBadRequest,
	CategoryConfig:        http.StatusBadRequest,
	CategoryNotFound:      http.StatusNotFound,
	CategoryAlreadyExists: http.StatusConflict,
	CategoryUnsupported:   http.StatusNotImplemented,
	CategoryNetwork:       http.StatusBadGateway,
	CategoryPublish:       http.StatusBadGateway,
	CategoryRuntime:       http.StatusServiceUnavailable,
	CategoryStorage:       http.StatusInternalServerError,
	CategoryInternal:      http.StatusInternalServerError,
}

// StatusCodeFor maps the outermost classified error to an HTTP status.
// Unclassified errors are 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if c, ok := AsClassified(err); ok {
		if status, known := statusByCategory[c.Category()]; known {
			return status
		}
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes err as JSON and logs it at a level derived from
// its severity. Immediately retryable errors carry a Retry-After header.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	b, jerr := json.Marshal(a.FormatErrorResponse(err))
	if jerr != nil {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}

	c, classified := AsClassified(err)
	if classified && c.RetryStrategy() == RetryImmediate {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)

	attrs := []slog.Attr{
		logfields.Method(r.Method),
		logfields.Path(r.URL.Path),
		logfields.Status(status),
	}
	if !classified {
		a.logger.LogAttrs(r.Context(), slog.LevelError, "Request failed", append(attrs, logfields.Error(err))...)
		return
	}
	attrs = append(append(attrs, c.LogAttrs()...), logfields.Error(c))
	a.logger.LogAttrs(r.Context(), levelFor(c.Severity()), "Request failed", attrs...)
}

// FormatErrorResponse converts err into the canonical payload. Context values
// of classified errors become details.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) HTTPErrorResponse {
	if err == nil {
		return HTTPErrorResponse{}
	}
	c, ok := AsClassified(err)
	if !ok {
		return HTTPErrorResponse{Error: err.Error()}
	}

	resp := HTTPErrorResponse{Error: c.Message(), Code: string(c.Category())}
	if len(c.Context()) > 0 {
		resp.Details = map[string]any(c.Context())
	}
	resp.Retryable = c.CanRetry()
	return resp
}
