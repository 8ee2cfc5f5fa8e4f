package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateUserCode(); err != nil {
		return err
	}
	if err := c.validateRuntime(); err != nil {
		return err
	}
	if err := c.validateRunLog(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if err := ensureBareName("paths.sentinel_name", c.Paths.SentinelName); err != nil {
		return err
	}
	if c.Paths.ReadyName != "" {
		if err := ensureBareName("paths.ready_name", c.Paths.ReadyName); err != nil {
			return err
		}
		if c.Paths.ReadyName == c.Paths.SentinelName {
			return errors.New("paths.ready_name must differ from paths.sentinel_name")
		}
	}
	if err := ensureBareName("paths.lock_name", c.Paths.LockName); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if len(c.Watcher.Command) == 0 {
		return errors.New("watcher.command must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"watcher.ready_timeout_seconds": c.Watcher.ReadyTimeoutSeconds,
		"watcher.stop_grace_seconds":    c.Watcher.StopGraceSeconds,
	}); err != nil {
		return err
	}
	if c.Watcher.ReadyGraceSeconds < 0 {
		return errors.New("watcher.ready_grace_seconds must be >= 0")
	}
	if c.Watcher.DrainTimeoutSeconds < 0 {
		return errors.New("watcher.drain_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateUserCode() error {
	if len(c.UserCode.Command) == 0 {
		return errors.New("user_code.command must be set")
	}
	if c.UserCode.TimeoutSeconds < 0 {
		return errors.New("user_code.timeout_seconds must be >= 0")
	}
	if c.UserCode.FlushSettleSeconds < 0 {
		return errors.New("user_code.flush_settle_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateRuntime() error {
	if c.Runtime.Engine == "" {
		return errors.New("runtime.engine must be set")
	}
	if c.Runtime.Image == "" {
		return errors.New("runtime.image must be set (or set RUNBOX_IMAGE)")
	}
	if c.Runtime.CPUs != "" {
		if _, err := strconv.ParseFloat(c.Runtime.CPUs, 64); err != nil {
			return fmt.Errorf("runtime.cpus must be a decimal cpu count: %q", c.Runtime.CPUs)
		}
	}
	if c.Runtime.CodeMount == "" || !strings.HasPrefix(c.Runtime.CodeMount, "/") {
		return errors.New("runtime.code_mount must be an absolute container path")
	}
	return ensurePositiveMap(map[string]int{
		"runtime.timeout_seconds": c.Runtime.TimeoutSeconds,
	})
}

func (c *Config) validateRunLog() error {
	if c.RunLog.Enabled && strings.TrimSpace(c.RunLog.Path) == "" {
		return errors.New("run_log.path must be set when run_log.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensureBareName(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", key)
	}
	if strings.ContainsAny(value, "/\\") {
		return fmt.Errorf("%s must be a bare file name, got %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
