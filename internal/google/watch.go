package google

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/teemow/inboxbrief/internal/logging"
)

// WatchTokenFile calls onChange whenever the token file at path is written,
// created, renamed or removed, until ctx is done.
//
// The parent directory is watched rather than the file itself: Save replaces
// the file by renaming a temporary file over it, which would end a watch on
// the old inode.
func WatchTokenFile(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	logger = logging.OrDefault(logger)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve token path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					logger.Debug("token file changed", logging.Path(abs), slog.String("op", event.Op.String()))
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("token file watcher error", logging.Err(err))
			}
		}
	}()

	return nil
}
