package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"runbox/internal/config"
	"runbox/internal/logging"
	"runbox/internal/runlog"
	"runbox/internal/runtime"
	"runbox/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// lifecycleLogger returns the logger for a launcher run. In JSON mode the
// terminal stream moves to stderr so stdout carries only the summary.
func (c *commandContext) lifecycleLogger(jsonOut bool) (*slog.Logger, error) {
	if !jsonOut {
		return c.ensureLogger()
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfigStderr(cfg)
}

func (c *commandContext) runtimeClient() (*runtime.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return runtime.New(cfg.Runtime)
}

// withRunLog opens the run history store for the duration of fn. Each CLI
// invocation opens its own handle; the store is safe for that because SQLite
// serialises writers through the busy handler.
func (c *commandContext) withRunLog(fn func(store *runlog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.RunLog.Enabled {
		return services.Wrap(services.ErrConfiguration, "runs", "open store", "run history is disabled in the configuration", nil)
	}
	store, err := runlog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
