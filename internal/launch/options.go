package launch

import (
	"io"
	"time"

	"runbox/internal/config"
	"runbox/internal/services"
)

// Options carries every knob for one launcher run. All well-known paths are
// explicit fields rather than package constants so tests can point a run at
// temporary directories.
type Options struct {
	// WorkDir is the directory shared by user code and the watcher.
	WorkDir string
	// SentinelPath is where the completion marker is created.
	SentinelPath string
	// ReadyPath is the marker the watcher creates once its observers are
	// installed. Empty disables the handshake in favour of ReadyGrace.
	ReadyPath string
	// LockPath guards the work directory against concurrent launchers.
	LockPath string

	WatcherCommand []string
	UserCommand    []string

	// Env entries are appended to the inherited environment for both
	// child processes.
	Env []string

	// ReadyTimeout bounds the wait for ReadyPath.
	ReadyTimeout time.Duration
	// ReadyGrace is the fixed startup wait used when ReadyPath is empty.
	ReadyGrace time.Duration
	// UserTimeout bounds the user-code run. Zero means unbounded.
	UserTimeout time.Duration
	// FlushSettle is extra settle time after output is synced.
	FlushSettle time.Duration
	// DrainTimeout bounds the wait for the watcher to exit after the
	// sentinel is written. Zero means wait forever.
	DrainTimeout time.Duration
	// StopGrace is the SIGTERM to SIGKILL escalation window on abort.
	StopGrace time.Duration

	// Stdout and Stderr receive child process output. Nil defaults to the
	// launcher's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// OptionsFromConfig derives run options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkDir:        cfg.Paths.WorkDir,
		SentinelPath:   cfg.SentinelPath(),
		ReadyPath:      cfg.ReadyPath(),
		LockPath:       cfg.LockPath(),
		WatcherCommand: append([]string(nil), cfg.Watcher.Command...),
		UserCommand:    append([]string(nil), cfg.UserCode.Command...),
		ReadyTimeout:   time.Duration(cfg.Watcher.ReadyTimeoutSeconds) * time.Second,
		ReadyGrace:     time.Duration(cfg.Watcher.ReadyGraceSeconds) * time.Second,
		UserTimeout:    time.Duration(cfg.UserCode.TimeoutSeconds) * time.Second,
		FlushSettle:    time.Duration(cfg.UserCode.FlushSettleSeconds) * time.Second,
		DrainTimeout:   time.Duration(cfg.Watcher.DrainTimeoutSeconds) * time.Second,
		StopGrace:      time.Duration(cfg.Watcher.StopGraceSeconds) * time.Second,
	}
}

// Validate ensures the options describe a runnable lifecycle.
func (o *Options) Validate() error {
	switch {
	case o.WorkDir == "":
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "work directory is required", nil)
	case o.SentinelPath == "":
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "sentinel path is required", nil)
	case o.LockPath == "":
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "lock path is required", nil)
	case len(o.WatcherCommand) == 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "watcher command is required", nil)
	case len(o.UserCommand) == 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "user code command is required", nil)
	case o.ReadyPath != "" && o.ReadyTimeout <= 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "ready timeout must be positive when a ready path is set", nil)
	case o.ReadyPath == o.SentinelPath && o.ReadyPath != "":
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "ready path must differ from sentinel path", nil)
	case o.ReadyGrace < 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "ready grace must not be negative", nil)
	case o.UserTimeout < 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "user code timeout must not be negative", nil)
	case o.FlushSettle < 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "flush settle must not be negative", nil)
	case o.DrainTimeout < 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "drain timeout must not be negative", nil)
	case o.StopGrace <= 0:
		return services.Wrap(services.ErrConfiguration, "launcher", "validate options", "stop grace must be positive", nil)
	}
	return nil
}
