package tools

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/krakend/docsearch-mcp/internal/config"
)

// ReloadFunc rebuilds the document set; reason names the changed sources
type ReloadFunc func(ctx context.Context, reason string) error

// PayloadWatcher watches local payload files and triggers a debounced reload
// when any of them changes.
type PayloadWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	reload   ReloadFunc

	// files maps absolute payload paths to their source names
	files map[string]string
	dirs  map[string]bool

	// Debouncing: collect changes before reloading
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	reloads atomic.Int64
	done    chan struct{}
}

// NewPayloadWatcher creates a watcher for every local source in sources
func NewPayloadWatcher(sources []config.Source, debounce time.Duration, reload ReloadFunc) (*PayloadWatcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	files := make(map[string]string)
	dirs := make(map[string]bool)
	for _, src := range sources {
		if src.IsRemote() {
			continue
		}
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		files[abs] = src.Name
		// Editors replace files by rename, so watch the directory
		dirs[filepath.Dir(abs)] = true
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no local sources to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &PayloadWatcher{
		watcher:  fsw,
		debounce: debounce,
		reload:   reload,
		files:    files,
		dirs:     dirs,
		pending:  make(map[string]fsnotify.Op),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching; events are processed until ctx is done or Stop is called
func (w *PayloadWatcher) Start(ctx context.Context) error {
	for dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go w.processEvents(ctx)

	log.Printf("✓ Watching %d local payloads (debounce %v)", len(w.files), w.debounce)
	return nil
}

// Stop stops the watcher and waits for event processing to end
func (w *PayloadWatcher) Stop() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// Reloads returns how many reloads were triggered
func (w *PayloadWatcher) Reloads() int64 {
	return w.reloads.Load()
}

// processEvents handles fsnotify events with debouncing
func (w *PayloadWatcher) processEvents(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
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
			log.Printf("Warning: Watcher error: %v", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent records changes to watched payload files
func (w *PayloadWatcher) handleFSEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.files[abs]; !ok {
		return
	}

	w.pendingMu.Lock()
	w.pending[abs] |= event.Op
	w.pendingMu.Unlock()
}

// flushPending triggers one reload for every change accumulated since the last tick
func (w *PayloadWatcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	names := make([]string, 0, len(w.pending))
	for path := range w.pending {
		names = append(names, w.files[path])
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	sort.Strings(names)
	w.reloads.Add(1)

	// A failed reload keeps the previous document set live
	if err := w.reload(ctx, "changed: "+strings.Join(names, ", ")); err != nil {
		log.Printf("Warning: Reload after change failed: %v", err)
	}
}

// StartWatching watches local sources when watch.enabled is set.
// It returns nil when watching is disabled or there is nothing to watch.
func StartWatching(ctx context.Context) (*PayloadWatcher, error) {
	if !cfg.Watch.Enabled {
		return nil, nil
	}

	hasLocal := false
	for _, src := range cfg.Sources {
		if !src.IsRemote() {
			hasLocal = true
		}
	}
	if !hasLocal {
		log.Printf("Watch enabled but no local sources configured, skipping")
		return nil, nil
	}

	w, err := NewPayloadWatcher(cfg.Sources, cfg.Watch.Debounce, reloadDocSearch)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.watcher.Close()
		return nil, err
	}
	return w, nil
}
