// Package filewait blocks until a file appears, using filesystem notifications
// rather than polling.
package filewait

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Wait blocks until the file at path exists, the context is cancelled, or the
// timeout elapses (a zero timeout leaves only the context bound). The watch on
// the parent directory is installed before the existence check so a creation
// between the two cannot be missed.
func Wait(ctx context.Context, path string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watch closed")
			}
			// Renames into place surface as Create; writers that truncate an
			// existing file surface as Write.
			if filepath.Clean(event.Name) == path && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watch closed")
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}
