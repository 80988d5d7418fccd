package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// writeJSON encodes v into a buffer first so a failed encode never sends a
// partial response. A pretty=1 or pretty=true query parameter indents the
// output.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if r != nil {
		if p := r.URL.Query().Get("pretty"); p == "1" || p == "true" {
			enc.SetIndent("", "  ")
		}
	}
	if err := enc.Encode(v); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

// requireMethod writes a validation error and returns false when r does not use method.
func requireMethod(adapter *derrors.HTTPErrorAdapter, w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	err := derrors.ValidationError("invalid HTTP method").
		WithContext("method", r.Method).
		WithContext("allowed_method", method).
		Build()
	adapter.WriteErrorResponse(w, r, err)
	return false
}
