package logsink

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/metricbus/internal/metric"
)

func TestPublish_LogsRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := New("log", slog.LevelInfo, logger)
	require.NoError(t, p.Initialize(t.Context()))

	m := &metric.Metric{Name: "players", Namespace: "game", TagFields: []string{"server"}}
	r := metric.NewRecord(time.UnixMilli(1_700_000_000_000), map[string]string{"server": "lobby-1"}, map[string]float64{"": 3, "max": 50})
	require.NoError(t, p.Publish(t.Context(), r, m))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Record", entry["msg"])
	assert.Equal(t, "game_players", entry["metric"])
	assert.Equal(t, "gauge", entry["metric_type"])
	assert.Equal(t, map[string]any{"server": "lobby-1"}, entry["tags"])
	assert.Equal(t, map[string]any{"value": 3.0, "max": 50.0}, entry["fields"])
}

func TestPublish_BelowLevelIsSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	p := New("log", slog.LevelInfo, logger)

	require.NoError(t, p.Publish(t.Context(), metric.NewRecord(time.Now(), nil, map[string]float64{"": 1}), &metric.Metric{Name: "x"}))
	assert.Zero(t, buf.Len())
}
