package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher invalidates cached collections when their files change on disk,
// e.g. when an operator edits a .db.json file by hand.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *Store
	logger  *zap.Logger
}

// NewWatcher watches the store's data directory
func NewWatcher(store *Store, logger *zap.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(store.Dir()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", store.Dir(), err)
	}

	return &Watcher{
		watcher: watcher,
		store:   store,
		logger:  logger,
	}, nil
}

// Run dispatches file events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher without waiting for Run
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	name, ok := collectionName(event.Name)
	if !ok {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.store.Invalidate(name)
	}
}

// collectionName maps "<dir>/users.db.json" to "users"
func collectionName(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, FileSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(base, FileSuffix)
	return name, name != ""
}
