package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"texlsp/internal/logfields"
	"texlsp/internal/workspace"
)

// Watcher evicts cached diagnostics of tracked documents once their file is
// removed or renamed on disk.
type Watcher struct {
	evict   func(uri string)
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	tracked map[string]string // path -> uri
	dirs    map[string]int
}

// NewWatcher creates a watcher that calls evict for vanished documents.
func NewWatcher(evict func(uri string), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		evict:   evict,
		watcher: fw,
		logger:  logger,
		tracked: make(map[string]string),
		dirs:    make(map[string]int),
	}, nil
}

// Track starts watching the file behind uri. Non-file URIs are ignored.
func (w *Watcher) Track(uri string) error {
	path := workspace.URIToPath(uri)
	if path == "" {
		return nil
	}
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tracked[path]; ok {
		return nil
	}
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.tracked[path] = workspace.Canonical(uri)
	return nil
}

// Untrack stops watching the file behind uri.
func (w *Watcher) Untrack(uri string) {
	path := workspace.URIToPath(uri)
	if path == "" {
		return
	}
	path = filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.untrackLocked(path)
}

func (w *Watcher) untrackLocked(path string) {
	if _, ok := w.tracked[path]; !ok {
		return
	}
	delete(w.tracked, path)
	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Run processes file system events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.handleGone(filepath.Clean(ev.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleGone(path string) {
	w.mu.Lock()
	uri, ok := w.tracked[path]
	if ok {
		w.untrackLocked(path)
	}
	w.mu.Unlock()
	if !ok {
		return
	}
	w.logger.Debug("document removed from disk", logfields.URI(uri))
	w.evict(uri)
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
