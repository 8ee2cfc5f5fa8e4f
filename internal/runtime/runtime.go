// Package runtime wraps the container engine used to execute user code. The
// engine runs on the host; this package only shells out to its CLI, it never
// implements isolation itself.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"runbox/internal/config"
	"runbox/internal/fileutil"
	"runbox/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps container engine CLI interactions.
type Client struct {
	cfg  config.Runtime
	exec Executor
}

// New constructs a runtime client.
func New(cfg config.Runtime, opts ...Option) (*Client, error) {
	cfg.Engine = strings.TrimSpace(cfg.Engine)
	if cfg.Engine == "" {
		return nil, errors.New("container engine required")
	}
	if strings.TrimSpace(cfg.Image) == "" {
		return nil, errors.New("container image required")
	}
	client := &Client{
		cfg:  cfg,
		exec: commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the engine CLI binary name.
func (c *Client) Binary() string {
	return c.cfg.Engine
}

// Image returns the configured runtime image.
func (c *Client) Image() string {
	return c.cfg.Image
}

// Timeout returns the per-execution limit for containerized user code, or
// zero when unbounded.
func (c *Client) Timeout() time.Duration {
	return time.Duration(c.cfg.TimeoutSeconds) * time.Second
}

// CheckEngine verifies the engine CLI responds, returning its version line.
func (c *Client) CheckEngine(ctx context.Context) (string, error) {
	var version string
	err := c.exec.Run(ctx, c.cfg.Engine, []string{"--version"}, func(line string) {
		if version == "" {
			version = strings.TrimSpace(line)
		}
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "runtime", "check engine",
			fmt.Sprintf("%s --version failed", c.cfg.Engine), err)
	}
	return version, nil
}

// CheckImage verifies the runtime image is available locally.
func (c *Client) CheckImage(ctx context.Context) error {
	err := c.exec.Run(ctx, c.cfg.Engine, []string{"image", "inspect", c.cfg.Image}, func(string) {})
	if err != nil {
		return services.Wrap(services.ErrNotFound, "runtime", "check image",
			fmt.Sprintf("image %s not available locally", c.cfg.Image), err)
	}
	return nil
}

// Command builds the argv that executes a staged code file inside the runtime
// container. The container is removed on exit; the code file is mounted
// read-only at the configured mount point.
func (c *Client) Command(codePath string) []string {
	args := []string{c.cfg.Engine, "run", "--rm"}
	if c.cfg.Network != "" {
		args = append(args, "--network", c.cfg.Network)
	}
	if c.cfg.CPUs != "" {
		args = append(args, "--cpus", c.cfg.CPUs)
	}
	if c.cfg.Memory != "" {
		args = append(args, "--memory", c.cfg.Memory)
	}
	if c.cfg.EnvFile != "" {
		args = append(args, "--env-file", c.cfg.EnvFile)
	}
	args = append(args, "-v", fmt.Sprintf("%s:%s:ro", codePath, c.cfg.CodeMount))
	args = append(args, c.cfg.Image)
	return args
}

// Stage copies a code file into the staging directory under a unique name so
// the container mount never references a path the caller can still mutate.
func (c *Client) Stage(src, stagingDir string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", errors.New("code file required")
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	dest := filepath.Join(stagingDir, fmt.Sprintf("code-%s%s", uuid.NewString(), filepath.Ext(src)))
	if err := fileutil.CopyFileVerified(src, dest); err != nil {
		return "", fmt.Errorf("stage code file: %w", err)
	}
	return dest, nil
}
