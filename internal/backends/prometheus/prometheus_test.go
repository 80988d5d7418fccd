package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

func record(tags map[string]string, fields map[string]float64) metric.Record {
	return metric.NewRecord(time.UnixMilli(1_700_000_000_000), tags, fields)
}

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]Mode{"HTTP": ModeHTTP, "pushgateway": ModePush, "Both": ModeBoth, "": ModeHTTP} {
		got, err := ParseMode(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseMode("pull")
	require.Error(t, err)
}

func TestPublish_GaugeAndFanOut(t *testing.T) {
	ctx := t.Context()
	p := New("prom", Options{Mode: ModeHTTP})
	require.NoError(t, p.Initialize(ctx))
	require.NoError(t, p.Initialize(ctx))

	m := &metric.Metric{Name: "players", Namespace: "game", Description: "Players", TagFields: []string{"server"}}
	require.NoError(t, p.Publish(ctx, record(map[string]string{"server": "lobby-1"}, map[string]float64{"online": 12, "max": 50}), m))
	require.NoError(t, p.Publish(ctx, record(map[string]string{"server": "lobby-1"}, map[string]float64{"online": 14, "max": 50}), m))

	expected := `
# HELP game_players_max Players
# TYPE game_players_max gauge
game_players_max{server="lobby-1"} 50
# HELP game_players_online Players
# TYPE game_players_online gauge
game_players_online{server="lobby-1"} 14
`
	require.NoError(t, testutil.GatherAndCompare(p.Gatherer(), strings.NewReader(expected)))
}

func TestPublish_CounterAddsAndRejectsNegative(t *testing.T) {
	ctx := t.Context()
	p := New("prom", Options{})
	require.NoError(t, p.Initialize(ctx))

	m := &metric.Metric{Name: "chat_messages", Namespace: "game", Type: metric.Counter}
	require.NoError(t, p.Publish(ctx, record(nil, map[string]float64{"": 3}), m))
	require.NoError(t, p.Publish(ctx, record(nil, map[string]float64{"": 2}), m))

	err := p.Publish(ctx, record(nil, map[string]float64{"": -1}), m)
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryValidation, derrors.GetCategory(err))

	assert.InDelta(t, 5.0, testutil.ToFloat64(p.series["game_chat_messages"].collector), 1e-9)
}

func TestPublish_HistogramAndSummaryObserve(t *testing.T) {
	ctx := t.Context()
	p := New("prom", Options{Buckets: []float64{1, 5, 10}})
	require.NoError(t, p.Initialize(ctx))

	hist := &metric.Metric{Name: "latency", Namespace: "game", Type: metric.Histogram}
	sum := &metric.Metric{Name: "size", Namespace: "game", Type: metric.Summary}
	for _, v := range []float64{0.5, 3, 7} {
		require.NoError(t, p.Publish(ctx, record(nil, map[string]float64{"": v}), hist))
		require.NoError(t, p.Publish(ctx, record(nil, map[string]float64{"": v}), sum))
	}

	assert.Equal(t, 2, testutil.CollectAndCount(p.series["game_latency"].collector)+testutil.CollectAndCount(p.series["game_size"].collector))
	n, err := testutil.GatherAndCount(p.Gatherer(), "game_latency", "game_size")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPublish_MissingTagsBecomeEmptyLabels(t *testing.T) {
	ctx := t.Context()
	p := New("prom", Options{})
	require.NoError(t, p.Initialize(ctx))

	m := &metric.Metric{Name: "tps", Namespace: "game", TagFields: []string{"server", "world"}}
	require.NoError(t, p.Publish(ctx, record(map[string]string{"world": "nether"}, map[string]float64{"": 19.5}), m))

	g, err := p.series["game_tps"].gauge.GetMetricWithLabelValues("", "nether")
	require.NoError(t, err)
	assert.InDelta(t, 19.5, testutil.ToFloat64(g), 1e-9)
}

func TestPublish_RequiresInitialize(t *testing.T) {
	p := New("prom", Options{})
	err := p.Publish(t.Context(), record(nil, map[string]float64{"": 1}), &metric.Metric{Name: "x"})
	require.Error(t, err)
}

func TestInitialize_PushNeedsURL(t *testing.T) {
	p := New("prom", Options{Mode: ModePush})
	require.Error(t, p.Initialize(t.Context()))
}

func TestPublish_PushesToGateway(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		user   string
		body   string
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path = r.Method, r.URL.Path
		user, _, _ = r.BasicAuth()
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer gw.Close()

	ctx := t.Context()
	p := New("prom", Options{Mode: ModePush, PushURL: gw.URL, Job: "lobby", Username: "admin", Password: "pw"})
	require.NoError(t, p.Initialize(ctx))
	require.NoError(t, p.Publish(ctx, record(nil, map[string]float64{"": 42}), &metric.Metric{Name: "players", Namespace: "game"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/metrics/job/lobby", path)
	assert.Equal(t, "admin", user)
	assert.NotEmpty(t, body)

	assert.False(t, p.ServesHTTP())
	n, err := testutil.GatherAndCount(p.Gatherer())
	require.NoError(t, err)
	assert.Zero(t, n, "push-only mode keeps nothing for scraping")
}

func TestPublish_PushFailureRetriesThenFails(t *testing.T) {
	var calls int
	var mu sync.Mutex
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gw.Close()

	ctx := t.Context()
	p := New("prom", Options{
		Mode:    ModeBoth,
		PushURL: gw.URL,
		Retry:   retry.NewPolicy(retry.ModeFixed, time.Millisecond, time.Millisecond, 2),
	})
	require.NoError(t, p.Initialize(ctx))

	err := p.Publish(ctx, record(nil, map[string]float64{"": 1}), &metric.Metric{Name: "up", Namespace: "game"})
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryNetwork, derrors.GetCategory(err))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
}

func TestHandler_ServesExposition(t *testing.T) {
	ctx := t.Context()
	p := New("prom", Options{})
	require.NoError(t, p.Initialize(ctx))
	require.NoError(t, p.Publish(ctx, record(nil, map[string]float64{"": 7}), &metric.Metric{Name: "players", Namespace: "game"}))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "game_players 7")
}

func TestPublish_RejectedFieldLeavesRecordUnapplied(t *testing.T) {
	ctx := t.Context()
	p := New("prom", Options{})
	require.NoError(t, p.Initialize(ctx))

	m := &metric.Metric{Name: "blocks", Namespace: "game", Type: metric.Counter}
	require.NoError(t, p.Publish(ctx, record(nil, map[string]float64{"broken": 4, "placed": 2}), m))

	err := p.Publish(ctx, record(nil, map[string]float64{"broken": 3, "placed": -1}), m)
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryValidation, derrors.GetCategory(err))
	assert.InDelta(t, 4.0, testutil.ToFloat64(p.series["game_blocks_broken"].collector), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(p.series["game_blocks_placed"].collector), 1e-9)

	// A rejected first publish must not leave new series behind either.
	fresh := &metric.Metric{Name: "trades", Namespace: "game", Type: metric.Counter}
	require.Error(t, p.Publish(ctx, record(nil, map[string]float64{"emeralds": 5, "refunds": -2}), fresh))
	assert.NotContains(t, p.series, "game_trades_emeralds")
	count, err := testutil.GatherAndCount(p.Gatherer(), "game_trades_emeralds")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPublish_SeriesNameCollisionBetweenMetrics(t *testing.T) {
	ctx := t.Context()
	p := New("prom", Options{})
	require.NoError(t, p.Initialize(ctx))

	fanned := &metric.Metric{Name: "mobs", Namespace: "game", TagFields: []string{"world"}}
	require.NoError(t, p.Publish(ctx, record(map[string]string{"world": "end"}, map[string]float64{"killed": 7, "spawned": 9}), fanned))

	plain := &metric.Metric{Name: "mobs_killed", Namespace: "game"}
	err := p.Publish(ctx, record(nil, map[string]float64{"": 1}), plain)
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryValidation, derrors.GetCategory(err))

	c, ok := derrors.AsClassified(err)
	require.True(t, ok)
	owner, other := c.Context()["owner"], c.Context()["metric"]
	assert.Equal(t, "game_mobs", owner)
	assert.Equal(t, "game_mobs_killed", other)
	assert.InDelta(t, 7.0, testutil.ToFloat64(p.series["game_mobs_killed"].collector), 1e-9)
}
