package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeUserCode()
	if err := c.normalizeRuntime(); err != nil {
		return err
	}
	if err := c.normalizeRunLog(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.SentinelName = strings.TrimSpace(c.Paths.SentinelName)
	if c.Paths.SentinelName == "" {
		c.Paths.SentinelName = defaultSentinelName
	}
	c.Paths.ReadyName = strings.TrimSpace(c.Paths.ReadyName)
	c.Paths.LockName = strings.TrimSpace(c.Paths.LockName)
	if c.Paths.LockName == "" {
		c.Paths.LockName = defaultLockName
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	c.Watcher.Command = trimCommand(c.Watcher.Command)
	if len(c.Watcher.Command) == 0 {
		c.Watcher.Command = Default().Watcher.Command
	}
}

func (c *Config) normalizeUserCode() {
	c.UserCode.Command = trimCommand(c.UserCode.Command)
	if len(c.UserCode.Command) == 0 {
		c.UserCode.Command = Default().UserCode.Command
	}
}

func (c *Config) normalizeRuntime() error {
	c.Runtime.Engine = strings.TrimSpace(c.Runtime.Engine)
	if c.Runtime.Engine == "" {
		c.Runtime.Engine = defaultRuntimeEngine
	}
	if c.Runtime.Image == "" {
		if value, ok := os.LookupEnv("RUNBOX_IMAGE"); ok {
			c.Runtime.Image = value
		}
	}
	c.Runtime.Image = strings.TrimSpace(c.Runtime.Image)
	if c.Runtime.Image == "" {
		c.Runtime.Image = defaultRuntimeImage
	}
	c.Runtime.CPUs = strings.TrimSpace(c.Runtime.CPUs)
	c.Runtime.Memory = strings.TrimSpace(c.Runtime.Memory)
	c.Runtime.Network = strings.TrimSpace(c.Runtime.Network)
	if c.Runtime.Network == "" {
		c.Runtime.Network = defaultRuntimeNetwork
	}
	c.Runtime.EnvFile = strings.TrimSpace(c.Runtime.EnvFile)
	if c.Runtime.EnvFile != "" {
		expanded, err := expandPath(c.Runtime.EnvFile)
		if err != nil {
			return fmt.Errorf("runtime.env_file: %w", err)
		}
		c.Runtime.EnvFile = expanded
	}
	c.Runtime.CodeMount = strings.TrimSpace(c.Runtime.CodeMount)
	if c.Runtime.CodeMount == "" {
		c.Runtime.CodeMount = defaultRuntimeCodeMount
	}
	return nil
}

func (c *Config) normalizeRunLog() error {
	if strings.TrimSpace(c.RunLog.Path) == "" {
		c.RunLog.Path = defaultRunLogPath
	}
	expanded, err := expandPath(c.RunLog.Path)
	if err != nil {
		return fmt.Errorf("run_log.path: %w", err)
	}
	c.RunLog.Path = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimCommand(command []string) []string {
	trimmed := make([]string, 0, len(command))
	for _, arg := range command {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		trimmed = append(trimmed, arg)
	}
	return trimmed
}
