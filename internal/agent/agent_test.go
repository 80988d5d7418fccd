package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/metricbus/internal/backends/broadcast"
	"git.home.luguber.info/inful/metricbus/internal/config"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
	"git.home.luguber.info/inful/metricbus/internal/publisher/publishertest"
	"git.home.luguber.info/inful/metricbus/internal/retry"
)

// captureFactory replaces every configured publisher with a capture publisher
// and remembers them by key.
type captureFactory map[string]*publishertest.Capture

func (f captureFactory) build(pc config.PublisherConfig, _ retry.Policy, _ broadcast.Resolver) (publisher.Publisher, error) {
	c := publishertest.New(pc.Key, publisher.Kind(pc.Type))
	f[pc.Key] = c
	return c, nil
}

func mustParse(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

// newWithin builds an agent, failing fast instead of hanging when startup
// blocks.
func newWithin(t *testing.T, d time.Duration, cfg *config.Config, opts ...Option) *Agent {
	t.Helper()
	type result struct {
		a   *Agent
		err error
	}
	ch := make(chan result, 1)
	go func() {
		a, err := New(t.Context(), cfg, opts...)
		ch <- result{a, err}
	}()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r.a
	case <-time.After(d):
		t.Fatalf("agent construction did not finish within %s", d)
		return nil
	}
}

func keys(ps []publisher.Publisher) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Key())
	}
	return out
}

func TestNew_RegistersBroadcastLast(t *testing.T) {
	cfg := mustParse(t, `
service:
  namespace: mc
publishers:
  - key: everywhere
    type: broadcast
    broadcast:
      targets: [console, store]
  - key: console
    type: log
  - key: store
    type: sqlite
    sqlite:
      path: ":memory:"
metrics:
  - name: players_online
    tags: [world]
`)
	a := newWithin(t, 5*time.Second, cfg)
	t.Cleanup(func() { _ = a.Service().Close(context.Background()) })

	assert.Equal(t, []string{"console", "store", "everywhere"}, keys(a.Service().Publishers().All()))

	def, err := a.Service().Publishers().Default()
	require.NoError(t, err)
	assert.Equal(t, "console", def.Key())

	b, err := a.Service().Record("players_online")
	require.NoError(t, err)
	require.NoError(t, b.Tag("world", "nether").Value(3).PublishTo(t.Context(), "everywhere"))
}

func TestNew_DefaultPublisher(t *testing.T) {
	cfg := mustParse(t, `
service:
  default_publisher: second
publishers:
  - key: first
    type: log
  - key: second
    type: log
`)
	f := captureFactory{}
	a, err := New(t.Context(), cfg, WithFactory(f.build))
	require.NoError(t, err)

	def, err := a.Service().Publishers().Default()
	require.NoError(t, err)
	assert.Equal(t, "second", def.Key())
}

func TestNew_FailureClosesRegisteredPublishers(t *testing.T) {
	cfg := mustParse(t, `
publishers:
  - key: ok
    type: log
  - key: broken
    type: log
`)
	f := captureFactory{}
	failing := func(pc config.PublisherConfig, p retry.Policy, r broadcast.Resolver) (publisher.Publisher, error) {
		pub, _ := f.build(pc, p, r)
		if pc.Key == "broken" {
			pub.(*publishertest.Capture).InitErr = errors.New("connection refused")
		}
		return pub, nil
	}

	_, err := New(t.Context(), cfg, WithFactory(failing))
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryPublish, derrors.GetCategory(err))
	assert.True(t, f["ok"].Closed())
}

func TestRegisterDeclared_SkipsDuplicates(t *testing.T) {
	cfg := mustParse(t, `
service:
  namespace: mc
publishers:
  - type: log
metrics:
  - name: tps
`)
	f := captureFactory{}
	a, err := New(t.Context(), cfg, WithFactory(f.build))
	require.NoError(t, err)

	next := mustParse(t, `
service:
  namespace: mc
publishers:
  - type: log
metrics:
  - name: tps
  - name: chat_messages
    type: counter
`)
	require.NoError(t, a.reload(next))

	names := make([]string, 0)
	for _, m := range a.Service().Metrics() {
		names = append(names, m.NamespacedName())
	}
	assert.Equal(t, []string{"mc_tps", "mc_chat_messages"}, names)
}

func TestRun_SamplesRuntimeAndShutsDown(t *testing.T) {
	cfg := mustParse(t, `
service:
  namespace: mc
http:
  addr: 127.0.0.1:0
  self_metrics: true
sampler:
  enabled: true
  interval: 200ms
publishers:
  - key: cap
    type: log
`)
	f := captureFactory{}
	a := newWithin(t, 5*time.Second, cfg, WithFactory(f.build))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return len(f["cap"].Published()) > 0 }, 5*time.Second, 20*time.Millisecond)
	got := f["cap"].Published()[0]
	assert.Equal(t, "mc_go_runtime", got.Metric.NamespacedName())
	goroutines, ok := got.Record.Field("goroutines")
	require.True(t, ok)
	assert.Positive(t, goroutines)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("agent did not stop")
	}
	assert.True(t, f["cap"].Closed())
}
