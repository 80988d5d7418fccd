package sqlitestore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/metricbus/internal/metric"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppend_StoresOneRowPerField(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()
	at := time.UnixMilli(1_700_000_000_000)
	m := &metric.Metric{Name: "players", Namespace: "game", Type: metric.Gauge}

	r := metric.NewRecord(at, map[string]string{"server": "lobby-1"}, map[string]float64{"online": 12, "max": 50})
	require.NoError(t, s.Append(ctx, r, m))

	rows, err := s.Query(ctx, Query{Metric: "game_players"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "max", rows[0].Field)
	assert.InDelta(t, 50.0, rows[0].Value, 1e-9)
	assert.Equal(t, "online", rows[1].Field)
	for _, row := range rows {
		assert.Equal(t, at, row.At)
		assert.Equal(t, "gauge", row.Type)
		assert.Equal(t, map[string]string{"server": "lobby-1"}, row.Tags)
	}
}

func TestAppend_EmptyRecordStoresNothing(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Append(t.Context(), metric.NewRecord(time.Now(), nil, nil), &metric.Metric{Name: "x"}))
	rows, err := s.Query(t.Context(), Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQuery_Filters(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()
	base := time.UnixMilli(1_700_000_000_000)
	tps := &metric.Metric{Name: "tps", Namespace: "game"}
	chat := &metric.Metric{Name: "chat", Namespace: "game", Type: metric.Counter}

	for i := range 5 {
		server := "lobby-1"
		if i%2 == 1 {
			server = "lobby-2"
		}
		r := metric.NewRecord(base.Add(time.Duration(i)*time.Minute), map[string]string{"server": server}, map[string]float64{"": float64(20 - i)})
		require.NoError(t, s.Append(ctx, r, tps))
	}
	require.NoError(t, s.Append(ctx, metric.NewRecord(base, nil, map[string]float64{"": 1}), chat))

	t.Run("time range", func(t *testing.T) {
		rows, err := s.Query(ctx, Query{Metric: "game_tps", Since: base.Add(time.Minute), Until: base.Add(3 * time.Minute)})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.InDelta(t, 19.0, rows[0].Value, 1e-9)
		assert.InDelta(t, 17.0, rows[2].Value, 1e-9)
	})

	t.Run("tags", func(t *testing.T) {
		rows, err := s.Query(ctx, Query{Metric: "game_tps", Tags: map[string]string{"server": "lobby-2"}})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("field and limit", func(t *testing.T) {
		unnamed := ""
		rows, err := s.Query(ctx, Query{Field: &unnamed, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("metric names", func(t *testing.T) {
		names, err := s.Metrics(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"game_chat", "game_tps"}, names)
	})
}

func TestPublisher_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := t.Context()

	p := New("store", path)
	require.NoError(t, p.Initialize(ctx))
	require.NoError(t, p.Initialize(ctx))
	m := &metric.Metric{Name: "tps", Namespace: "game"}
	require.NoError(t, p.Publish(ctx, metric.NewRecord(time.Now(), nil, map[string]float64{"": 20}), m))
	require.NoError(t, p.Close())

	err := p.Publish(ctx, metric.NewRecord(time.Now(), nil, map[string]float64{"": 20}), m)
	require.Error(t, err)

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.Query(ctx, Query{Metric: "game_tps"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
