// Package watch reports changes to manifest files in a set of directories,
// coalescing bursts of filesystem events into one batch per debounce window.
package watch

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

// Config configures a Watcher.
type Config struct {
	// Dirs are watched non-recursively. Missing directories are skipped.
	Dirs []string

	// Debounce is how long to collect changes before emitting a batch
	Debounce time.Duration

	// Extensions filters file names (default: .yaml, .yml)
	Extensions []string

	// Logger for logging events
	Logger *slog.Logger
}

// Batch is the set of manifest files that changed within one debounce window.
type Batch struct {
	// Paths are absolute and sorted
	Paths []string
	// Removed is the subset of Paths that no longer exist
	Removed []string
}

// Watcher watches manifest directories and emits batches of changed files.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	events chan Batch
	done   chan struct{}
}

// NewWatcher creates a watcher. Call Start to begin receiving events.
func NewWatcher(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 200 * time.Millisecond
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".yaml", ".yml"}
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
		events:  make(chan Batch, 16),
		done:    make(chan struct{}),
	}, nil
}

// Events returns the channel of change batches. It is closed after Stop.
func (w *Watcher) Events() <-chan Batch {
	return w.events
}

// Start adds the configured directories and begins processing events until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	watched := 0
	for _, dir := range w.config.Dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Debug("Skipping missing directory", slog.String("path", dir))
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("Failed to watch directory", slog.String("path", dir), slog.String("error", err.Error()))
			continue
		}
		watched++
	}

	go w.processEvents(ctx)

	w.logger.Info("Manifest watcher started",
		slog.Int("dirs", watched),
		slog.Duration("debounce", w.config.Debounce))
	return nil
}

// Stop closes the underlying watcher and waits for event processing to end.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	defer close(w.events)

	ticker := time.NewTicker(w.config.Debounce)
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
			w.logger.Error("Watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !w.matches(event.Name) || event.Op == fsnotify.Chmod {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Manifest change detected",
		slog.String("path", event.Name),
		slog.String("op", event.Op.String()))
}

func (w *Watcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.config.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var batch Batch
	for path := range toProcess {
		batch.Paths = append(batch.Paths, path)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			batch.Removed = append(batch.Removed, path)
		}
	}
	sort.Strings(batch.Paths)
	sort.Strings(batch.Removed)

	select {
	case <-ctx.Done():
	case w.events <- batch:
		w.logger.Debug("Sent watch batch", slog.Int("paths", len(batch.Paths)))
	default:
		w.logger.Warn("Event channel full, dropping batch", slog.Int("paths", len(batch.Paths)))
	}
}
