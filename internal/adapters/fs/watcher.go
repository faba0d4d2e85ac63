package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/ipcheck/internal/ports"
)

// DefaultDebounceDelay is the quiet period after the last change before
// the callback fires.
const DefaultDebounceDelay = 250 * time.Millisecond

// Watcher reports changes to a single package file.
// The parent directory is watched so editors that replace the file
// (write temp, rename) are still seen.
type Watcher struct {
	mu       sync.Mutex
	path     string
	delay    time.Duration
	logger   ports.Logger
	debounce *time.Timer
}

// NewWatcher creates a watcher for path. A non-positive delay selects
// DefaultDebounceDelay.
func NewWatcher(path string, delay time.Duration, logger ports.Logger) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Watcher{path: filepath.Clean(path), delay: delay, logger: logger}
}

// Run blocks until ctx is done, calling onChange (debounced) whenever the
// file is written or re-created.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching package", ports.String("path", w.path))

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("package changed", ports.String("op", event.Op.String()))
			w.schedule(onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) schedule(onChange func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, onChange)
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
