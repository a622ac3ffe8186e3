package yaml

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 200 * time.Millisecond

// Reloader receives a complete replacement layer set.
type Reloader interface {
	ReplaceAll(layers []domain.PromptLayer) error
}

// Watcher reloads the catalog into a Reloader when the file changes. A
// catalog that fails to load or validate leaves the current layers in place.
type Watcher struct {
	catalog  *Catalog
	target   Reloader
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	running bool
	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewWatcher(catalog *Catalog, target Reloader, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		catalog:  catalog,
		target:   target,
		logger:   logger,
		debounce: defaultDebounce,
	}
}

// Start watches the catalog's directory so that editors replacing the file
// by rename are seen. It returns once the watch is registered.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.catalog.Path())); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch catalog directory: %w", err)
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.run(ctx, fsw, w.stopCh, w.doneCh)

	w.logger.Info("watching layer catalog", zap.String("path", w.catalog.Path()))
	return nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh, fsw := w.stopCh, w.doneCh, w.fsw
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	if err := fsw.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return fmt.Errorf("close catalog watcher: %w", err)
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", zap.Error(err))

		case <-timerC:
			timerC = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.catalog.Path() {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (w *Watcher) reload(ctx context.Context) {
	layers, err := w.catalog.Load(ctx)
	if err != nil {
		w.logger.Warn("catalog reload rejected, keeping current layers", zap.Error(err))
		return
	}

	if err := w.target.ReplaceAll(layers); err != nil {
		w.logger.Warn("catalog reload rejected, keeping current layers", zap.Error(err))
		return
	}

	w.logger.Info("layer catalog reloaded", zap.Int("layers", len(layers)))
}
