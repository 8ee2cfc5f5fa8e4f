package launch

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"runbox/internal/config"
)

func validOptions() Options {
	work := filepath.Join("/tmp", "runbox-test")
	return Options{
		WorkDir:        work,
		SentinelPath:   filepath.Join(work, ".done"),
		ReadyPath:      filepath.Join(work, ".watcher-ready"),
		LockPath:       filepath.Join(work, ".runbox.lock"),
		WatcherCommand: []string{"watcher"},
		UserCommand:    []string{"user"},
		ReadyTimeout:   time.Second,
		StopGrace:      time.Second,
	}
}

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Options)
		fragment string
	}{
		{"missing work dir", func(o *Options) { o.WorkDir = "" }, "work directory"},
		{"missing sentinel", func(o *Options) { o.SentinelPath = "" }, "sentinel"},
		{"missing lock", func(o *Options) { o.LockPath = "" }, "lock"},
		{"missing watcher command", func(o *Options) { o.WatcherCommand = nil }, "watcher command"},
		{"missing user command", func(o *Options) { o.UserCommand = nil }, "user command"},
		{"ready without timeout", func(o *Options) { o.ReadyTimeout = 0 }, "ready timeout"},
		{"ready equals sentinel", func(o *Options) { o.ReadyPath = o.SentinelPath }, "must differ"},
		{"negative user timeout", func(o *Options) { o.UserTimeout = -time.Second }, "user code timeout"},
		{"negative drain timeout", func(o *Options) { o.DrainTimeout = -time.Second }, "drain timeout"},
		{"missing stop grace", func(o *Options) { o.StopGrace = 0 }, "stop grace"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := validOptions()
			tc.mutate(&opts)
			err := opts.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("error %q does not mention %q", err, tc.fragment)
			}
		})
	}

	opts := validOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = "/srv/runbox"
	cfg.Watcher.Command = []string{"python3", "watcher.py"}
	cfg.UserCode.Command = []string{"python3", "code.py"}
	cfg.UserCode.TimeoutSeconds = 90
	cfg.Watcher.DrainTimeoutSeconds = 30
	cfg.Runtime.Image = "py-runtime"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	opts := OptionsFromConfig(&cfg)
	if opts.WorkDir != "/srv/runbox" {
		t.Fatalf("WorkDir = %q", opts.WorkDir)
	}
	if opts.SentinelPath != filepath.Join("/srv/runbox", ".done") {
		t.Fatalf("SentinelPath = %q", opts.SentinelPath)
	}
	if opts.ReadyPath != filepath.Join("/srv/runbox", ".watcher-ready") {
		t.Fatalf("ReadyPath = %q", opts.ReadyPath)
	}
	if opts.UserTimeout != 90*time.Second {
		t.Fatalf("UserTimeout = %s", opts.UserTimeout)
	}
	if opts.DrainTimeout != 30*time.Second {
		t.Fatalf("DrainTimeout = %s", opts.DrainTimeout)
	}
	if opts.ReadyTimeout != 10*time.Second || opts.StopGrace != 5*time.Second {
		t.Fatalf("timeouts = (%s, %s), want defaults", opts.ReadyTimeout, opts.StopGrace)
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("options from config invalid: %v", err)
	}

	// Mutating the source config must not leak into the copied commands.
	cfg.Watcher.Command[0] = "changed"
	if opts.WatcherCommand[0] != "python3" {
		t.Fatal("watcher command not copied")
	}
}
