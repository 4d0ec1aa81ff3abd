package ml

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchArtifact invokes onChange after writes to the artifact file
// settle. Trainers replace the file rather than write in place, so
// the parent directory is watched and events are filtered by name.
// Blocks until ctx is done.
func WatchArtifact(ctx context.Context, path string, log *zap.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	const settle = 500 * time.Millisecond
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(settle, onChange)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("artifact watcher error", zap.Error(werr))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
