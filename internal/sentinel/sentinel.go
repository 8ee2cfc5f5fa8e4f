// Package sentinel manages the completion marker shared between the launcher
// and the watcher process. The marker is an empty file; its presence is the
// whole signal.
package sentinel

import (
	"fmt"
	"os"
	"path/filepath"

	"runbox/internal/services"
)

// Write creates the sentinel at path with an exclusive create, then fsyncs the
// file and its parent directory so the marker is durable before the watcher
// can observe it. An already-present sentinel is a validation error; stale
// markers must be cleared before a run starts.
func Write(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return services.Wrap(services.ErrValidation, "sentinel", "write", fmt.Sprintf("marker already exists at %s", path), nil)
		}
		return fmt.Errorf("create sentinel %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync sentinel %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close sentinel %s: %w", path, err)
	}
	return syncDir(filepath.Dir(path))
}

// Clear removes the sentinel if present. Removing an absent marker is not an
// error, so cleanup paths can call Clear unconditionally.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sentinel %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the sentinel is present at path.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat sentinel %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("sentinel path %s is a directory", path)
	}
	return true, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open sentinel directory %s: %w", dir, err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync sentinel directory %s: %w", dir, err)
	}
	return nil
}
