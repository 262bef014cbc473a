package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chi-grants/grantflow/internal/model"
	"github.com/chi-grants/grantflow/internal/service"
)

const defaultSettle = 500 * time.Millisecond

// Watcher registers files dropped into the pending directory. New files
// are given a short settle window before staging so partially written
// copies are not picked up mid-write.
type Watcher struct {
	store  *Store
	ledger service.Ledger
	settle time.Duration
}

// NewWatcher creates a Watcher over the store's pending directory.
func NewWatcher(store *Store, ledger service.Ledger) *Watcher {
	return &Watcher{store: store, ledger: ledger, settle: defaultSettle}
}

// Run watches the pending directory until the context is done. Files
// already present at startup are staged first, so documents dropped while
// no watcher was running are not lost.
func (w *Watcher) Run(ctx context.Context) error {
	fswatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fswatcher.Close() }()

	pendingDir := w.store.PendingDir()
	if err := os.MkdirAll(pendingDir, 0o750); err != nil {
		return fmt.Errorf("creating pending directory: %w", err)
	}
	if err := fswatcher.Add(pendingDir); err != nil {
		return fmt.Errorf("watching %s: %w", pendingDir, err)
	}

	w.syncExisting(ctx)
	slog.Info("Watching for documents", "dir", pendingDir)

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	settled := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case path := <-settled:
			w.ingest(ctx, path)

		case event, ok := <-fswatcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !w.wanted(event.Name) {
				continue
			}

			mu.Lock()
			if timer, exists := timers[event.Name]; exists {
				timer.Reset(w.settle)
			} else {
				path := event.Name
				timers[path] = time.AfterFunc(w.settle, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					select {
					case settled <- path:
					case <-ctx.Done():
					}
				})
			}
			mu.Unlock()

		case watchErr, ok := <-fswatcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", watchErr)
		}
	}
}

// wanted filters watch events down to supported document files.
func (w *Watcher) wanted(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if _, ok := model.FormatFromPath(name); !ok {
		slog.Debug("Ignoring unsupported file", "name", name)
		return false
	}
	return true
}

// syncExisting stages files already in the pending directory.
func (w *Watcher) syncExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.store.PendingDir())
	if err != nil {
		slog.Warn("Failed to scan pending directory", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.store.PendingDir(), entry.Name())
		if w.wanted(path) {
			w.ingest(ctx, path)
		}
	}
}

// ingest stages and registers one settled file. Files the ledger already
// knows are skipped, which also covers the watcher seeing its own staging
// renames.
func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if w.isRegistered(ctx, filepath.Base(path)) {
		return
	}

	rec, err := w.store.Adopt(path)
	if err != nil {
		slog.Warn("Failed to stage dropped file", "path", path, "error", err)
		return
	}
	if err := w.ledger.Register(ctx, rec); err != nil {
		slog.Warn("Failed to register dropped file", "document", rec.StoredName, "error", err)
		return
	}
	slog.Info("Registered document", "document", rec.StoredName, "id", rec.ID)
}

func (w *Watcher) isRegistered(ctx context.Context, storedName string) bool {
	recs, err := w.ledger.List(ctx, "")
	if err != nil {
		return false
	}
	for _, rec := range recs {
		if rec.StoredName == storedName {
			return true
		}
	}
	return false
}
