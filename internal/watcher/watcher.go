// Package watcher feeds filesystem changes to incremental reindexing.
// It watches a tree recursively with fsnotify and debounces rapid
// event bursts into coalesced batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sema-sh/sema/internal/config"
)

// Operation is the kind of filesystem change.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns a human-readable operation name.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one coalesced filesystem change.
type FileEvent struct {
	// Path is relative to the watched root, slash-separated.
	Path string

	Operation Operation
	Timestamp time.Time
}

// Watcher watches a directory tree and emits debounced event batches.
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	debouncer *Debouncer

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a watcher for the tree rooted at root. Events within the
// debounce window are coalesced per path before a batch is emitted.
func New(root string, debounce time.Duration) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:      absRoot,
		fsw:       fsw,
		debouncer: NewDebouncer(debounce),
		done:      make(chan struct{}),
	}, nil
}

// Start registers the tree and begins translating raw events. It
// returns once the watch is established; the event loop runs until
// Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

// Batches returns the channel of debounced event batches.
func (w *Watcher) Batches() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Stop shuts the watcher down. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
		w.debouncer.Stop()
	})
}

// addRecursive registers a directory and everything under it,
// skipping the data directory, .git, and hidden directories.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (name == config.DataDirName || name == ".git" || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			slog.Debug("failed to watch directory",
				slog.String("path", path),
				slog.String("error", addErr.Error()))
		}
		return nil
	})
}

// loop translates fsnotify events into debounced FileEvents.
func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	// Changes inside the data directory would retrigger indexing forever
	if rel == config.DataDirName || strings.HasPrefix(rel, config.DataDirName+"/") {
		return
	}
	if strings.HasPrefix(rel, ".git/") || rel == ".git" {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		// New directories need their own watch; their files arrive as
		// separate create events.
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			return
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      rel,
		Operation: op,
		Timestamp: time.Now(),
	})
}
