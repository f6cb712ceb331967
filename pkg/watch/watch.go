// Package watch watches a directory tree for new or modified files and
// invokes a callback once each file looks stable (no further writes for a
// debounce window), the way cmd/imghash watch feeds pkg/hasher ingestion.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce is how long a file must go quiet before it's considered
// stable enough to ingest.
const defaultDebounce = 200 * time.Millisecond

// Callback is invoked once per path, after it has been quiet for the
// debounce window.
type Callback func(path string) error

// Config configures a Watcher.
type Config struct {
	// Root is the directory tree to watch.
	Root string

	// Debounce is how long a path must go without a Write event before
	// Callback fires. Defaults to 200ms.
	Debounce time.Duration

	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Watcher recursively watches Root (fsnotify itself is non-recursive, so a
// watch is added to every subdirectory discovered, including ones created
// after startup) and debounces rapid writes before calling back.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
	callback Callback

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a Watcher rooted at cfg.Root and adds watches for it and every
// subdirectory it contains.
func New(cfg Config, callback Callback) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("watch: Root is required")
	}
	if callback == nil {
		return nil, fmt.Errorf("watch: callback is required")
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		callback: callback,
		timers:   make(map[string]*time.Timer),
	}

	if err := w.addTree(cfg.Root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// addTree adds a watch for root and every directory beneath it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks, dispatching events until ctx is cancelled or the underlying
// watcher errors. Callback runs on the debounce timer's goroutine after that
// timer fires, one path at a time.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watching new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.debounceFire(event.Name)
}

// debounceFire (re)starts path's debounce timer; only the most recent timer
// per path survives, so rapid writes collapse into one callback invocation.
func (w *Watcher) debounceFire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}

	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.timers, path)

		if err := w.callback(path); err != nil {
			w.logger.Warn("ingest callback failed", zap.String("path", path), zap.Error(err))
		}
	})
}

// Close stops the watcher and cancels any pending debounce timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()

	return w.fsw.Close()
}
