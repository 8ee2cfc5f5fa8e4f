package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"runbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Runtime.Image = "py-runtime"
	cfgVal.Runtime.EnvFile = ""
	cfgVal.RunLog.Path = filepath.Join(base, "runs.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithWatcherCommand overrides the watcher command on the test config.
func WithWatcherCommand(command ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watcher.Command = command
	}
}

// WithUserCommand overrides the user code command on the test config.
func WithUserCommand(command ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.UserCode.Command = command
	}
}

// WithRunLogDisabled turns off run history recording.
func WithRunLogDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RunLog.Enabled = false
	}
}

// WithRuntimeEngine overrides the container engine binary on the test config.
func WithRuntimeEngine(engine string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Runtime.Engine = engine
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the container engine is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"docker"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
