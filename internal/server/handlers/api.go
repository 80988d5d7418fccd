package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
	"git.home.luguber.info/inful/metricbus/internal/server/responses"
	"git.home.luguber.info/inful/metricbus/internal/service"
	"git.home.luguber.info/inful/metricbus/internal/version"
)

// maxRecordBody bounds POST /api/records bodies.
const maxRecordBody = 1 << 20

// APIHandlers serves the admin API for one service.
type APIHandlers struct {
	svc          *service.Service
	startTime    time.Time
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewAPIHandlers creates handlers bound to svc. startTime feeds the uptime
// reported by the health check.
func NewAPIHandlers(svc *service.Service, startTime time.Time, adapter *derrors.HTTPErrorAdapter) *APIHandlers {
	if adapter == nil {
		adapter = derrors.NewHTTPErrorAdapter(slog.Default())
	}
	return &APIHandlers{svc: svc, startTime: startTime, errorAdapter: adapter}
}

// HandleHealthCheck handles GET /healthz.
func (h *APIHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}

	health := &responses.HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Version:     version.Version,
		Uptime:      time.Since(h.startTime).Seconds(),
		Namespace:   h.svc.Namespace(),
		QueueLength: h.svc.QueueLength(),
		Publishers:  h.svc.Publishers().Len(),
		Metrics:     len(h.svc.Metrics()),
	}
	// A service without publishers accepts records it can never deliver.
	if health.Publishers == 0 {
		health.Status = "degraded"
	}

	if err := writeJSON(w, r, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
	}
}

// HandleMetrics handles GET /api/metrics.
func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}

	registered := h.svc.Metrics()
	out := responses.MetricsResponse{Metrics: make([]responses.MetricResponse, 0, len(registered))}
	for _, m := range registered {
		out.Metrics = append(out.Metrics, responses.MetricResponse{
			Name:             m.Name,
			Namespace:        m.Namespace,
			NamespacedName:   m.NamespacedName(),
			Description:      m.Description,
			Type:             m.EffectiveType().String(),
			TagFields:        m.TagFields,
			Kind:             m.Kind,
			DefaultPublisher: m.DefaultPublisher,
		})
	}
	out.Count = len(out.Metrics)

	if err := writeJSON(w, r, http.StatusOK, out); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
	}
}

// HandlePublishers handles GET /api/publishers.
func (h *APIHandlers) HandlePublishers(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}

	reg := h.svc.Publishers()
	defaultKey := ""
	if p, err := reg.Default(); err == nil {
		defaultKey = p.Key()
	}
	all := reg.All()
	out := responses.PublishersResponse{Publishers: make([]responses.PublisherResponse, 0, len(all))}
	for _, p := range all {
		out.Publishers = append(out.Publishers, responses.PublisherResponse{
			Key:     p.Key(),
			Kind:    string(p.Kind()),
			Default: p.Key() == defaultKey,
		})
	}
	out.Count = len(out.Publishers)

	if err := writeJSON(w, r, http.StatusOK, out); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
	}
}

// HandleRecord handles POST /api/records. Records are delivered synchronously
// unless the request sets async, in which case the response carries the task ID.
func (h *APIHandlers) HandleRecord(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodPost) {
		return
	}

	var req responses.RecordRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRecordBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			derrors.WrapError(err, derrors.CategoryValidation, "invalid record body").Build())
		return
	}

	b, err := h.builderFor(req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if req.At != nil {
		b.At(time.UnixMilli(*req.At))
	}
	b.Tags(req.Tags)
	for k, v := range req.Fields {
		b.Field(k, v)
	}
	if req.Value != nil {
		b.Value(*req.Value)
	}

	resp := responses.RecordResponse{Metric: b.Metric().NamespacedName()}
	switch {
	case req.Async && req.Publisher == "":
		tc, err := b.Publish()
		if err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		resp.Status = "queued"
		resp.TaskID = tc.ID
		slog.Debug("Record queued", logfields.Metric(resp.Metric), logfields.TaskID(tc.ID))
		if err := writeJSON(w, r, http.StatusAccepted, resp); err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, err)
		}
		return
	case req.Publisher != "":
		err = b.PublishTo(r.Context(), req.Publisher)
	default:
		err = b.PublishSync(r.Context())
	}
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	resp.Status = "published"
	if err := writeJSON(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
	}
}

func (h *APIHandlers) builderFor(req responses.RecordRequest) (*service.Builder, error) {
	switch {
	case req.Metric != "":
		return h.svc.Record(req.Metric)
	case req.Kind != "":
		return h.svc.RecordKind(req.Kind)
	default:
		return nil, derrors.ValidationError("record needs a metric name or kind").Build()
	}
}
