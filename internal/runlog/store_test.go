package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"runbox/internal/config"
	"runbox/internal/services"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.RunLog.Path = filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginAndFinishRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Begin(ctx, "20260822T101500.000Z", "/srv/runbox",
		[]string{"python3", "code.py"}, []string{"python3", "watcher.py"})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if rec.ID == "" || rec.Status != StatusRunning {
		t.Fatalf("record = %+v, want running with an ID", rec)
	}

	finished := time.Now().UTC()
	rec.Status = StatusSucceeded
	rec.UserExitCode = 0
	rec.WatcherExitCode = 0
	rec.SentinelCreated = true
	rec.UserDuration = 1500 * time.Millisecond
	rec.WatcherDuration = 2 * time.Second
	rec.ArtifactURLs = []string{"https://files.example.com/out.csv"}
	rec.FinishedAt = &finished
	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("record not found")
	}
	if got.Status != StatusSucceeded || !got.SentinelCreated {
		t.Fatalf("record = %+v", got)
	}
	if got.UserDuration != 1500*time.Millisecond || got.WatcherDuration != 2*time.Second {
		t.Fatalf("durations = (%s, %s)", got.UserDuration, got.WatcherDuration)
	}
	if len(got.ArtifactURLs) != 1 || got.ArtifactURLs[0] != "https://files.example.com/out.csv" {
		t.Fatalf("ArtifactURLs = %v", got.ArtifactURLs)
	}
	if got.UserCommand != "python3 code.py" {
		t.Fatalf("UserCommand = %q", got.UserCommand)
	}
	if got.FinishedAt == nil || !got.Finished() {
		t.Fatal("record should be finished")
	}
}

func TestGetAcceptsLauncherRunID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Begin(ctx, "20260822T111111.000Z", "/srv/runbox", nil, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	got, err := store.Get(ctx, "20260822T111111.000Z")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != rec.ID {
		t.Fatalf("got = %+v, want record %s", got, rec.ID)
	}

	missing, err := store.Get(ctx, "no-such-run")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing = %+v, want nil", missing)
	}
}

func TestListNewestFirstAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, runID := range []string{"run-a", "run-b", "run-c"} {
		if _, err := store.Begin(ctx, runID, "/srv/runbox", nil, nil); err != nil {
			t.Fatalf("Begin %s: %v", runID, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	if records[0].RunID != "run-c" || records[2].RunID != "run-a" {
		t.Fatalf("order = %s, %s, %s", records[0].RunID, records[1].RunID, records[2].RunID)
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited len = %d, want 2", len(limited))
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	records, err = store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List after clear: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("len after clear = %d, want 0", len(records))
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.RunLog.Path = filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.execWithRetry(context.Background(), "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := Open(&cfg); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("err = %v, want schema mismatch", err)
	}
}

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusSucceeded},
		{"user code", services.Wrap(services.ErrUserCode, "launcher", "run user code", "exit status 3", nil), StatusUserFailed},
		{"timeout", services.Wrap(services.ErrTimeout, "launcher", "await ready", "not ready", nil), StatusTimedOut},
		{"watcher", services.Wrap(services.ErrExternalTool, "launcher", "join watcher", "exit status 9", nil), StatusWatcherFailed},
		{"other", errors.New("boom"), StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusFromError(tc.err); got != tc.want {
				t.Fatalf("StatusFromError = %s, want %s", got, tc.want)
			}
		})
	}
}
