package agent

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/metricbus/internal/config"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

const defaultDebounce = 2 * time.Second

// ConfigWatcher hands a freshly loaded configuration to apply whenever the
// file's content changes. Saves that leave the bytes untouched are ignored.
type ConfigWatcher struct {
	path         string
	apply        func(*config.Config) error
	fsw          *fsnotify.Watcher
	debounceTime time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
	exited   chan struct{}

	lastSum uint64
}

// NewConfigWatcher prepares a watcher for path. Nothing is watched until Start.
func NewConfigWatcher(path string, apply func(*config.Config) error) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "cannot resolve config path").
			WithContext("path", path).
			Build()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryRuntime, "cannot create file watcher").Build()
	}
	return &ConfigWatcher{
		path:         abs,
		apply:        apply,
		fsw:          fsw,
		debounceTime: defaultDebounce,
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
	}, nil
}

// Start watches the file's directory, since editors often replace the file on
// save and a watch on the file itself would be lost.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	if data, err := os.ReadFile(cw.path); err == nil {
		cw.lastSum = xxhash.Sum64(data)
	}
	dir := filepath.Dir(cw.path)
	if err := cw.fsw.Add(dir); err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "cannot watch config directory").
			WithContext("dir", dir).
			Build()
	}
	slog.Info("Watching configuration", logfields.Path(cw.path))
	cw.started.Store(true)
	go cw.loop(ctx)
	return nil
}

// Stop ends the watch loop and waits for it. Repeated calls are no-ops.
func (cw *ConfigWatcher) Stop(_ context.Context) error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.done)
		err = cw.fsw.Close()
		if cw.started.Load() {
			<-cw.exited
		}
		slog.Info("Stopped configuration watcher")
	})
	return err
}

func (cw *ConfigWatcher) loop(ctx context.Context) {
	defer close(cw.exited)

	name := filepath.Base(cw.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.done:
			return
		case ev, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Remove) {
				slog.Warn("Configuration file removed; keeping current settings", logfields.Path(ev.Name))
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(cw.debounceTime)
			}
		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Configuration watch error", logfields.Error(err))
		case <-timer.C:
			if err := cw.reload(); err != nil {
				slog.Error("Configuration reload rejected", logfields.Path(cw.path), logfields.Error(err))
			}
		}
	}
}

// reload applies the file if its content differs from what was last applied.
// A rejected file leaves the previous checksum so fixing it triggers a reload.
func (cw *ConfigWatcher) reload() error {
	data, err := os.ReadFile(cw.path)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "cannot read configuration").Build()
	}
	sum := xxhash.Sum64(data)
	if sum == cw.lastSum {
		slog.Debug("Configuration unchanged", logfields.Path(cw.path))
		return nil
	}

	cfg, err := config.Load(cw.path)
	if err != nil {
		return err
	}
	if err := cw.apply(cfg); err != nil {
		return err
	}
	cw.lastSum = sum
	slog.Info("Configuration reloaded", logfields.Path(cw.path))
	return nil
}
