package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyNamespace  = "namespace"
	KeyMetric     = "metric"
	KeyMetricType = "metric_type"
	KeyPublisher  = "publisher"
	KeyKind       = "publisher_kind"
	KeyTaskID     = "task_id"
	KeyDelayMS    = "delay_ms"
	KeyDurationMS = "duration_ms"
	KeyFields     = "fields"
	KeyQueueLen   = "queue_length"
	KeyPath       = "path"
	KeyAddr       = "addr"
	KeyError      = "error"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyRequestID  = "request_id"
	KeyBytes      = "bytes"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Namespace(ns string) slog.Attr   { return slog.String(KeyNamespace, ns) }
func Metric(name string) slog.Attr    { return slog.String(KeyMetric, name) }
func MetricType(t string) slog.Attr   { return slog.String(KeyMetricType, t) }
func Publisher(key string) slog.Attr  { return slog.String(KeyPublisher, key) }
func Kind(kind string) slog.Attr      { return slog.String(KeyKind, kind) }
func TaskID(id string) slog.Attr      { return slog.String(KeyTaskID, id) }
func Fields(n int) slog.Attr          { return slog.Int(KeyFields, n) }
func QueueLength(n int) slog.Attr     { return slog.Int(KeyQueueLen, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Delay(d time.Duration) slog.Attr { return slog.Int64(KeyDelayMS, d.Milliseconds()) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Bytes(n int64) slog.Attr         { return slog.Int64(KeyBytes, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
