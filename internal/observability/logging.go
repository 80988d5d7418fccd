// Package observability threads publish and task identity through contexts so
// log lines carry it without every call site repeating the attributes.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// LogContext is the identity attached to a context.
type LogContext struct {
	Namespace string
	TaskID    string
	Publisher string
	Metric    string
}

type logContextKey struct{}

func update(ctx context.Context, set func(*LogContext)) context.Context {
	lc := GetContext(ctx)
	set(&lc)
	return context.WithValue(ctx, logContextKey{}, lc)
}

func WithNamespace(ctx context.Context, ns string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Namespace = ns })
}

func WithTaskID(ctx context.Context, id string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.TaskID = id })
}

func WithPublisher(ctx context.Context, key string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Publisher = key })
}

func WithMetric(ctx context.Context, name string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Metric = name })
}

// GetContext returns the identity stored in ctx, zero when there is none.
func GetContext(ctx context.Context) LogContext {
	lc, _ := ctx.Value(logContextKey{}).(LogContext)
	return lc
}

// Attrs returns the non-empty identity fields of ctx.
func (lc LogContext) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 4)
	if lc.Namespace != "" {
		attrs = append(attrs, logfields.Namespace(lc.Namespace))
	}
	if lc.TaskID != "" {
		attrs = append(attrs, logfields.TaskID(lc.TaskID))
	}
	if lc.Publisher != "" {
		attrs = append(attrs, logfields.Publisher(lc.Publisher))
	}
	if lc.Metric != "" {
		attrs = append(attrs, logfields.Metric(lc.Metric))
	}
	return attrs
}

// Handler adds the context identity to every record before passing it on.
type Handler struct {
	next slog.Handler
}

// NewHandler wraps next. Wrapping a Handler again returns it unchanged.
func NewHandler(next slog.Handler) *Handler {
	if h, ok := next.(*Handler); ok {
		return h
	}
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		r.AddAttrs(GetContext(ctx).Attrs()...)
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

// log writes through the default logger. When the default handler already
// injects the identity it is not added twice.
func log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	logger := slog.Default()
	if _, injected := logger.Handler().(*Handler); !injected {
		attrs = append(GetContext(ctx).Attrs(), attrs...)
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}

func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelDebug, msg, attrs)
}

func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelInfo, msg, attrs)
}

func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelWarn, msg, attrs)
}

func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	log(ctx, slog.LevelError, msg, attrs)
}
