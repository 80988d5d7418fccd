package redisstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/metricbus/internal/backends/wire"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/metric"
)

type mockClient struct {
	pingErr error
	addErr  error
	added   []*redis.XAddArgs
	closed  bool
}

func (m *mockClient) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	if m.addErr != nil {
		return redis.NewStringResult("", m.addErr)
	}
	m.added = append(m.added, a)
	return redis.NewStringResult("1700000000000-0", nil)
}

func (m *mockClient) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.pingErr)
}

func (m *mockClient) Close() error {
	m.closed = true
	return nil
}

func newTestPublisher(t *testing.T, opts Options, mock *mockClient) *Publisher {
	t.Helper()
	p := New("redis", opts)
	p.newClient = func(Options) streamClient { return mock }
	return p
}

func TestPublish_AppendsEnvelope(t *testing.T) {
	mock := &mockClient{}
	p := newTestPublisher(t, Options{Stream: "stats", MaxLen: 1000}, mock)
	ctx := t.Context()
	require.NoError(t, p.Initialize(ctx))
	require.NoError(t, p.Initialize(ctx))

	m := &metric.Metric{Name: "players", Namespace: "game"}
	r := metric.NewRecord(time.UnixMilli(1_700_000_000_000), nil, map[string]float64{"online": 3})
	require.NoError(t, p.Publish(ctx, r, m))

	require.Len(t, mock.added, 1)
	args := mock.added[0]
	assert.Equal(t, "stats", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values, ok := args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "game_players", values["metric"])
	assert.Equal(t, "1700000000000", values["at"])
	env, err := wire.Decode([]byte(values["payload"].(string)))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"online": 3}, env.Fields)

	require.NoError(t, p.Close())
	assert.True(t, mock.closed)
}

func TestInitialize_PingFailure(t *testing.T) {
	mock := &mockClient{pingErr: errors.New("dial tcp: connection refused")}
	p := newTestPublisher(t, Options{Addr: "127.0.0.1:1"}, mock)

	err := p.Initialize(t.Context())
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryNetwork, derrors.GetCategory(err))
	assert.True(t, mock.closed)
}

func TestPublish_XAddFailure(t *testing.T) {
	mock := &mockClient{addErr: errors.New("READONLY")}
	p := newTestPublisher(t, Options{}, mock)
	require.NoError(t, p.Initialize(t.Context()))

	err := p.Publish(t.Context(), metric.NewRecord(time.Now(), nil, map[string]float64{"": 1}), &metric.Metric{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryNetwork, derrors.GetCategory(err))
}

func TestPublish_RequiresInitialize(t *testing.T) {
	p := New("redis", Options{})
	err := p.Publish(t.Context(), metric.NewRecord(time.Now(), nil, map[string]float64{"": 1}), &metric.Metric{Name: "x"})
	require.Error(t, err)
}
