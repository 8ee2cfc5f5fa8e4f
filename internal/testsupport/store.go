package testsupport

import (
	"context"
	"testing"

	"runbox/internal/config"
	"runbox/internal/runlog"
)

// MustOpenStore opens a runlog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runlog.Store {
	t.Helper()

	store, err := runlog.Open(cfg)
	if err != nil {
		t.Fatalf("runlog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun inserts a running record for tests using the provided store.
func BeginRun(t testing.TB, store *runlog.Store, runID string) *runlog.Record {
	t.Helper()

	rec, err := store.Begin(context.Background(), runID, "/srv/runbox",
		[]string{"python3", "code.py"}, []string{"python3", "watcher.py"})
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return rec
}
