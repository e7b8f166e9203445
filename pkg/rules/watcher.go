package rules

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a file-backed rule document for changes and hot-swaps
// the store's snapshot. Reloads are debounced to prevent reload storms,
// and a document that fails validation keeps the last good snapshot in
// place.
type Watcher struct {
	source   *FileSource
	store    *Store
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherConfig contains configuration for the rule watcher.
type WatcherConfig struct {
	// DebounceInterval is the time to wait after a change before
	// reloading (default: 100ms).
	DebounceInterval time.Duration
}

// NewWatcher creates a watcher that reloads the store from the source
// whenever the underlying document changes.
func NewWatcher(source *FileSource, store *Store, cfg *WatcherConfig) (*Watcher, error) {
	if source == nil || store == nil {
		return nil, fmt.Errorf("source and store cannot be nil")
	}

	debounce := 100 * time.Millisecond
	if cfg != nil && cfg.DebounceInterval > 0 {
		debounce = cfg.DebounceInterval
	}

	return &Watcher{
		source:   source,
		store:    store,
		logger:   slog.Default().With("component", "rules.watcher"),
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It watches the document's directory rather
// than the file itself so atomic rename-replace writes are observed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(w.source.Path())
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %q: %w", dir, err)
	}

	w.watcher = fw
	w.running = true

	go w.loop(ctx)

	w.logger.Info("rule watcher started",
		"path", w.source.Path(),
		"debounce", w.debounce,
	)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.watcher.Close()
	w.mu.Unlock()

	<-w.doneCh
	w.logger.Info("rule watcher stopped")
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerCh <-chan time.Time

	target := filepath.Clean(w.source.Path())

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: restart the timer on every event burst.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-timerCh:
			timerCh = nil
			w.reload()
		}
	}
}

// reload loads a fresh snapshot and swaps it in. On failure the store
// keeps serving the last good snapshot.
func (w *Watcher) reload() {
	snapshot, err := w.source.LoadSnapshot()
	if err != nil {
		w.logger.Error("rule reload failed, keeping last good snapshot",
			"path", w.source.Path(),
			"error", err,
		)
		return
	}

	old := w.store.Snapshot()
	if err := w.store.Replace(snapshot); err != nil {
		w.logger.Error("snapshot replace failed", "error", err)
		return
	}

	w.logger.Info("rule snapshot reloaded",
		"version", snapshot.Version,
		"rules", snapshot.Len(),
		"previous_version", old.Version,
	)
}
