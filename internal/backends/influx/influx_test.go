package influx

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

type capturedWrite struct {
	query writeQuery
	body  string
}

type writeQuery struct {
	org, bucket, precision string
}

func writeServer(t *testing.T, status int) (*httptest.Server, func() []capturedWrite) {
	t.Helper()
	var mu sync.Mutex
	var writes []capturedWrite
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		q := r.URL.Query()
		mu.Lock()
		writes = append(writes, capturedWrite{
			query: writeQuery{org: q.Get("org"), bucket: q.Get("bucket"), precision: q.Get("precision")},
			body:  string(b),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedWrite {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedWrite(nil), writes...)
	}
}

func TestPoint(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	m := &metric.Metric{Name: "players", Namespace: "game"}
	r := metric.NewRecord(at, map[string]string{"server": "lobby-1"}, map[string]float64{"": 3, "max": 50})

	p := Point(r, m)
	assert.Equal(t, "game_players", p.Name())
	assert.Equal(t, at, p.Time())

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, map[string]any{"value": 3.0, "max": 50.0}, fields)
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "server", p.TagList()[0].Key)
}

func TestPoint_ExplicitValueFieldWins(t *testing.T) {
	r := metric.NewRecord(time.Now(), nil, map[string]float64{"": 1, "value": 2})
	p := Point(r, &metric.Metric{Name: "x"})
	require.Len(t, p.FieldList(), 1)
	assert.Equal(t, 2.0, p.FieldList()[0].Value)
}

func TestPublish_WritesLineProtocol(t *testing.T) {
	srv, writes := writeServer(t, http.StatusNoContent)
	ctx := t.Context()

	p := New("influx", Options{URL: srv.URL, Token: "tok", Org: "org", Bucket: "metrics"})
	require.NoError(t, p.Initialize(ctx))
	t.Cleanup(func() { _ = p.Close() })

	m := &metric.Metric{Name: "tps", Namespace: "game"}
	r := metric.NewRecord(time.UnixMilli(1_700_000_000_000), map[string]string{"server": "lobby-1"}, map[string]float64{"": 19.5})
	require.NoError(t, p.Publish(ctx, r, m))

	got := writes()
	require.Len(t, got, 1)
	assert.Equal(t, writeQuery{org: "org", bucket: "metrics", precision: "ms"}, got[0].query)
	assert.Contains(t, got[0].body, "game_tps,server=lobby-1 value=19.5 1700000000000")
}

func TestPublish_EmptyRecordWritesNothing(t *testing.T) {
	srv, writes := writeServer(t, http.StatusNoContent)
	ctx := t.Context()
	p := New("influx", Options{URL: srv.URL, Org: "org", Bucket: "metrics"})
	require.NoError(t, p.Initialize(ctx))

	require.NoError(t, p.Publish(ctx, metric.NewRecord(time.Now(), nil, nil), &metric.Metric{Name: "x"}))
	assert.Empty(t, writes())
}

func TestPublish_ServerErrorIsNetworkError(t *testing.T) {
	srv, writes := writeServer(t, http.StatusBadRequest)
	ctx := t.Context()
	p := New("influx", Options{
		URL: srv.URL, Org: "org", Bucket: "metrics",
		Retry: retry.NewPolicy(retry.ModeFixed, time.Millisecond, time.Millisecond, 1),
	})
	require.NoError(t, p.Initialize(ctx))

	err := p.Publish(ctx, metric.NewRecord(time.Now(), nil, map[string]float64{"": 1}), &metric.Metric{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryNetwork, derrors.GetCategory(err))
	assert.Len(t, writes(), 2)
}

func TestInitialize_Validation(t *testing.T) {
	p := New("influx", Options{URL: "http://localhost:8086"})
	require.Error(t, p.Initialize(t.Context()))

	err := p.Publish(t.Context(), metric.NewRecord(time.Now(), nil, map[string]float64{"": 1}), &metric.Metric{Name: "x"})
	require.Error(t, err)
}
