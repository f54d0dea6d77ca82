package config

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"toolgate/internal/infra/telemetry"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Update carries a reloaded configuration to subscribers.
type Update struct {
	Config   Config
	Revision uint64
}

// Provider serves the current configuration and watches the file for
// changes, debounced, notifying subscribers on effective change.
type Provider struct {
	logger *zap.Logger
	loader *Loader
	path   string

	state    atomic.Value
	revision atomic.Uint64

	subsMu sync.Mutex
	subs   map[chan Update]struct{}

	reloadMu  sync.Mutex
	watchOnce sync.Once
	watchCtx  context.Context
}

func NewProvider(ctx context.Context, path string, logger *zap.Logger) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := NewLoader(logger)
	cfg, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	provider := &Provider{
		logger:   logger.Named("config_provider"),
		loader:   loader,
		path:     path,
		subs:     make(map[chan Update]struct{}),
		watchCtx: ctx,
	}
	provider.state.Store(cfg)
	provider.revision.Store(1)
	return provider, nil
}

// Snapshot returns the current configuration.
func (p *Provider) Snapshot() Config {
	return p.state.Load().(Config)
}

// Watch subscribes to configuration updates and starts the file watcher
// on first use. The subscription ends when ctx is canceled.
func (p *Provider) Watch(ctx context.Context) <-chan Update {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan Update, 1)
	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	p.watchOnce.Do(func() {
		go p.runWatcher(p.watchCtx)
	})

	go func() {
		<-ctx.Done()
		p.subsMu.Lock()
		delete(p.subs, ch)
		p.subsMu.Unlock()
	}()

	return ch
}

// Reload re-reads the file and notifies subscribers on change.
func (p *Provider) Reload() error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	prev := p.Snapshot()
	next, err := p.loader.Load(p.path)
	if err != nil {
		return err
	}
	if reflect.DeepEqual(prev, next) {
		return nil
	}

	revision := p.revision.Add(1)
	p.state.Store(next)
	p.logger.Info("configuration reloaded",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.Uint64("revision", revision),
	)
	p.broadcast(Update{Config: next, Revision: revision})
	return nil
}

func (p *Provider) broadcast(update Update) {
	p.subsMu.Lock()
	subs := make([]chan Update, 0, len(p.subs))
	for ch := range p.subs {
		subs = append(subs, ch)
	}
	p.subsMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func (p *Provider) runWatcher(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("config watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace files, breaking inode watches.
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		p.logger.Warn("config watcher add failed", zap.String("path", dir), zap.Error(err))
		return
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watcher.Errors:
			if err != nil {
				p.logger.Warn("config watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(defaultReloadDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(defaultReloadDebounce)
		case <-timerChan(timer):
			timer = nil
			if err := p.Reload(); err != nil {
				p.logger.Warn("config reload failed", zap.Error(err))
			}
		}
	}
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
