package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working directory layout shared by the launcher and the
// watcher process.
type Paths struct {
	WorkDir      string `toml:"work_dir"`
	LogDir       string `toml:"log_dir"`
	SentinelName string `toml:"sentinel_name"`
	ReadyName    string `toml:"ready_name"`
	LockName     string `toml:"lock_name"`
}

// Watcher contains configuration for the background watcher process.
type Watcher struct {
	Command             []string `toml:"command"`
	ReadyTimeoutSeconds int      `toml:"ready_timeout_seconds"`
	ReadyGraceSeconds   int      `toml:"ready_grace_seconds"`
	DrainTimeoutSeconds int      `toml:"drain_timeout_seconds"`
	StopGraceSeconds    int      `toml:"stop_grace_seconds"`
}

// UserCode contains configuration for the foreground user-code process.
type UserCode struct {
	Command            []string `toml:"command"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	FlushSettleSeconds int      `toml:"flush_settle_seconds"`
}

// Runtime contains configuration for host-side container execution.
type Runtime struct {
	Engine         string `toml:"engine"`
	Image          string `toml:"image"`
	CPUs           string `toml:"cpus"`
	Memory         string `toml:"memory"`
	Network        string `toml:"network"`
	EnvFile        string `toml:"env_file"`
	CodeMount      string `toml:"code_mount"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// RunLog contains configuration for the run-history database.
type RunLog struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for runbox.
//
// Configuration sections by subsystem:
//   - Paths: working directory, log directory, and marker file names
//   - Watcher: background watcher command and readiness/drain timing
//   - UserCode: user-code command, timeout, and flush settle
//   - Runtime: container engine settings for host-side execution
//   - RunLog: run-history database
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Watcher  Watcher  `toml:"watcher"`
	UserCode UserCode `toml:"user_code"`
	Runtime  Runtime  `toml:"runtime"`
	RunLog   RunLog   `toml:"run_log"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/runbox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/runbox/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("runbox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for launcher operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.RunLog.Enabled && strings.TrimSpace(c.RunLog.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.RunLog.Path), 0o755); err != nil {
			return fmt.Errorf("create run log directory %q: %w", filepath.Dir(c.RunLog.Path), err)
		}
	}
	return nil
}

// SentinelPath returns the absolute path of the completion sentinel.
func (c *Config) SentinelPath() string {
	return filepath.Join(c.Paths.WorkDir, c.Paths.SentinelName)
}

// ReadyPath returns the absolute path of the watcher readiness marker, or an
// empty string when the readiness handshake is disabled.
func (c *Config) ReadyPath() string {
	if strings.TrimSpace(c.Paths.ReadyName) == "" {
		return ""
	}
	return filepath.Join(c.Paths.WorkDir, c.Paths.ReadyName)
}

// LockPath returns the absolute path of the launcher instance lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, c.Paths.LockName)
}

// EngineBinary returns the container engine executable name.
func (c *Config) EngineBinary() string {
	return c.Runtime.Engine
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
