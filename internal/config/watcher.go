package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// DefaultDebounceInterval is how long the watcher waits for further writes
// to the same file before emitting a change event.
const DefaultDebounceInterval = 500 * time.Millisecond

// ChangeEvent describes a modification to one of the watched config layers.
type ChangeEvent struct {
	// Path is the config file that changed.
	Path string

	// Op describes the filesystem operation (create, write, remove, rename).
	Op string

	// Timestamp records when the change was observed.
	Timestamp time.Time
}

// Watcher watches the layered config files and emits debounced change
// events. Slow subscribers lose events rather than blocking the watcher.
type Watcher struct {
	mu sync.Mutex

	logger hclog.Logger

	// files maps cleaned layer file paths to their watched state.
	files map[string]struct{}

	// dirs are the parent directories registered with fsnotify. Editors
	// replace files via rename, so the directories are watched rather
	// than the files themselves.
	dirs []string

	debounceInterval time.Duration

	watcher *fsnotify.Watcher

	// pending tracks the debounce timer per file path.
	pending map[string]*time.Timer

	events chan ChangeEvent

	stopCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for the files named by layers.
// A zero debounce interval selects DefaultDebounceInterval.
func NewWatcher(logger hclog.Logger, layers Layers, debounce time.Duration) (*Watcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}

	files := make(map[string]struct{})
	dirSet := make(map[string]struct{})
	for _, path := range []string{layers.Base, layers.Overlay, layers.Local} {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		cleaned := filepath.Clean(path)
		files[cleaned] = struct{}{}
		dirSet[filepath.Dir(cleaned)] = struct{}{}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files to watch")
	}

	dirs := make([]string, 0, len(dirSet))
	for dir := range dirSet {
		dirs = append(dirs, dir)
	}

	return &Watcher{
		logger:           logger.Named("config.watcher"),
		files:            files,
		dirs:             dirs,
		debounceInterval: debounce,
		pending:          make(map[string]*time.Timer),
		events:           make(chan ChangeEvent, 8),
		stopCh:           make(chan struct{}),
	}, nil
}

// Events returns the channel change events are published on.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Start begins watching for filesystem changes until ctx is canceled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("Failed to watch config directory", "dir", dir, "error", err)
			continue
		}
		w.logger.Debug("Watching config directory", "dir", dir)
	}

	go w.processEvents(ctx)

	return nil
}

// processEvents handles filesystem events until shutdown.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.cleanupPending()
			return

		case <-w.stopCh:
			w.cleanupPending()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Filesystem watcher error", "error", err)
		}
	}
}

// handleFsEvent debounces a single filesystem event for a watched layer file.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[path]; !ok {
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	op := event.Op.String()

	// Reset any pending timer so rapid successive writes coalesce.
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}

	w.pending[path] = time.AfterFunc(w.debounceInterval, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		change := ChangeEvent{
			Path:      path,
			Op:        op,
			Timestamp: time.Now(),
		}

		select {
		case w.events <- change:
			w.logger.Debug("Emitted config change event", "path", path, "op", op)
		default:
			w.logger.Warn("Config change channel full, dropping event", "path", path)
		}
	})
}

// cleanupPending cancels all pending debounce timers.
func (w *Watcher) cleanupPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing filesystem watcher", "error", err)
		}
		w.watcher = nil
	}

	return nil
}
