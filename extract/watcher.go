package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the source-tree watcher.
type WatcherConfig struct {
	// Root is the service directory to watch.
	Root string

	// Extensions limits events to files with these extensions. Empty
	// means every extension with a registered parser.
	Extensions []string

	// DebounceDelay is how long to wait for more changes before emitting
	// a batch.
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// Watcher watches a source tree and emits debounced batches of changed
// file paths (relative to root). Callers re-extract on each batch; the
// watcher itself holds no symbol state.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	changes chan []string
}

// NewWatcher creates a source-tree watcher.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 250 * time.Millisecond
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultRegistry.ListExtensions()
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]struct{}),
		changes: make(chan []string, 16),
	}, nil
}

// Changes returns the channel of debounced change batches.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start begins watching. The event loop exits when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Source watcher started",
		"root", w.config.Root,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop closes the underlying fsnotify watcher. The event goroutine owns
// the change channel and closes it on exit, so Stop never races a
// concurrent batch send.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if path != root && (skipDirs[base] || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.watchedExtension(path) {
		// Watch newly created directories so files added later are seen.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				base := filepath.Base(path)
				if !skipDirs[base] && !strings.HasPrefix(base, ".") {
					_ = w.watcher.Add(path)
				}
			}
		}
		return
	}

	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.pendingMu.Lock()
	w.pending[rel] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected", "path", rel, "op", event.Op.String())
}

func (w *Watcher) watchedExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.config.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(batch)

	select {
	case w.changes <- batch:
	default:
		w.logger.Warn("Change channel full, dropping batch", "files", len(batch))
	}
}
