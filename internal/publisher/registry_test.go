package publisher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/publisher"
	"git.home.luguber.info/inful/metricbus/internal/publisher/publishertest"
)

func TestRegistry_RegisterInitializesOnce(t *testing.T) {
	reg := publisher.NewRegistry()
	p := publishertest.New("prometheus", "prometheus")

	require.NoError(t, reg.Register(t.Context(), p))
	assert.Equal(t, 1, p.Inits())

	got, err := reg.ByKey("prometheus")
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestRegistry_DuplicateKeyRejected(t *testing.T) {
	reg := publisher.NewRegistry()
	first := publishertest.New("influx", "influx")
	second := publishertest.New("influx", "influx")

	require.NoError(t, reg.Register(t.Context(), first))
	err := reg.Register(t.Context(), second)

	require.Error(t, err)
	assert.True(t, derrors.IsDuplicate(err))
	assert.Equal(t, 0, second.Inits(), "rejected publisher must not be initialized")
	got, _ := reg.ByKey("influx")
	assert.Same(t, first, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_InitializeFailureRejects(t *testing.T) {
	reg := publisher.NewRegistry()
	p := publishertest.New("nats", "nats")
	p.InitErr = errors.New("connection refused")

	err := reg.Register(t.Context(), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, p.InitErr)

	_, err = reg.ByKey("nats")
	assert.True(t, derrors.IsNotFound(err))
}

func TestRegistry_Validation(t *testing.T) {
	reg := publisher.NewRegistry()
	assert.Equal(t, derrors.CategoryValidation, derrors.GetCategory(reg.Register(context.Background(), nil)))
	assert.Equal(t, derrors.CategoryValidation, derrors.GetCategory(reg.Register(context.Background(), publishertest.New("", "x"))))
}

func TestRegistry_Lookups(t *testing.T) {
	reg := publisher.NewRegistry()
	_, err := reg.Default()
	require.True(t, derrors.IsNotFound(err), "empty registry has no default")

	a := publishertest.New("influx-eu", "influx")
	b := publishertest.New("influx-us", "influx")
	c := publishertest.New("prometheus", "prometheus")
	for _, p := range []*publishertest.Capture{a, b, c} {
		require.NoError(t, reg.Register(t.Context(), p))
	}

	byKind, err := reg.ByKind("influx")
	require.NoError(t, err)
	assert.Same(t, a, byKind, "first registered of a kind wins")

	_, err = reg.ByKind("redis")
	assert.True(t, derrors.IsNotFound(err))
	_, err = reg.ByKey("missing")
	assert.True(t, derrors.IsNotFound(err))

	def, err := reg.Default()
	require.NoError(t, err)
	assert.Same(t, a, def, "insertion-order-first without a pinned default")

	require.NoError(t, reg.SetDefault("prometheus"))
	def, err = reg.Default()
	require.NoError(t, err)
	assert.Same(t, c, def)

	assert.True(t, derrors.IsNotFound(reg.SetDefault("missing")))
	assert.Len(t, reg.All(), 3)
}

func TestRegistry_Close(t *testing.T) {
	reg := publisher.NewRegistry()
	a := publishertest.New("a", "log")
	b := publishertest.New("b", "log")
	require.NoError(t, reg.Register(t.Context(), a))
	require.NoError(t, reg.Register(t.Context(), b))

	require.NoError(t, reg.Close())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

// resolvingPublisher looks up another registration while being initialized,
// the way a broadcast publisher resolves its targets.
type resolvingPublisher struct {
	*publishertest.Capture
	reg    *publisher.Registry
	target string
	found  publisher.Publisher
}

func (p *resolvingPublisher) Initialize(ctx context.Context) error {
	target, err := p.reg.ByKey(p.target)
	if err != nil {
		return err
	}
	p.found = target
	return p.Capture.Initialize(ctx)
}

func TestRegistry_InitializeMayResolveOtherPublishers(t *testing.T) {
	reg := publisher.NewRegistry()
	target := publishertest.New("a", "log")
	require.NoError(t, reg.Register(t.Context(), target))

	fanout := &resolvingPublisher{Capture: publishertest.New("all", "broadcast"), reg: reg, target: "a"}
	done := make(chan error, 1)
	go func() { done <- reg.Register(t.Context(), fanout) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Register did not return while Initialize looked up another publisher")
	}
	assert.Same(t, target, fanout.found)
	assert.Equal(t, 2, reg.Len())

	err := reg.Register(t.Context(), &resolvingPublisher{Capture: publishertest.New("all", "broadcast"), reg: reg, target: "a"})
	assert.True(t, derrors.IsDuplicate(err))
}

func TestRegistry_ConcurrentRegistrationsOfOneKey(t *testing.T) {
	reg := publisher.NewRegistry()
	const n = 8
	errs := make(chan error, n)
	for range n {
		go func() { errs <- reg.Register(t.Context(), publishertest.New("influx", "influx")) }()
	}

	var ok, dup int
	for range n {
		switch err := <-errs; {
		case err == nil:
			ok++
		case derrors.IsDuplicate(err):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
	assert.Equal(t, 1, reg.Len())
}
