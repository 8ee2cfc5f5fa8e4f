package config

const (
	defaultWorkDir             = "/app"
	defaultLogDir              = "~/.local/share/runbox/logs"
	defaultSentinelName        = ".done"
	defaultReadyName           = ".watcher-ready"
	defaultLockName            = ".runbox.lock"
	defaultReadyTimeoutSeconds = 10
	defaultReadyGraceSeconds   = 1
	defaultStopGraceSeconds    = 5
	defaultRuntimeEngine       = "docker"
	defaultRuntimeImage        = "py-runtime"
	defaultRuntimeCPUs         = "2.0"
	defaultRuntimeMemory       = "2048m"
	defaultRuntimeNetwork      = "bridge"
	defaultRuntimeEnvFile      = ".env"
	defaultRuntimeCodeMount    = "/app/code.py"
	defaultRuntimeTimeout      = 60
	defaultRunLogPath          = "~/.local/share/runbox/runs.db"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:      defaultWorkDir,
			LogDir:       defaultLogDir,
			SentinelName: defaultSentinelName,
			ReadyName:    defaultReadyName,
			LockName:     defaultLockName,
		},
		Watcher: Watcher{
			Command:             []string{"python3", "/app/watcher.py"},
			ReadyTimeoutSeconds: defaultReadyTimeoutSeconds,
			ReadyGraceSeconds:   defaultReadyGraceSeconds,
			DrainTimeoutSeconds: 0,
			StopGraceSeconds:    defaultStopGraceSeconds,
		},
		UserCode: UserCode{
			Command:            []string{"python3", "/app/code.py"},
			TimeoutSeconds:     0,
			FlushSettleSeconds: 0,
		},
		Runtime: Runtime{
			Engine:         defaultRuntimeEngine,
			CPUs:           defaultRuntimeCPUs,
			Memory:         defaultRuntimeMemory,
			Network:        defaultRuntimeNetwork,
			EnvFile:        defaultRuntimeEnvFile,
			CodeMount:      defaultRuntimeCodeMount,
			TimeoutSeconds: defaultRuntimeTimeout,
		},
		RunLog: RunLog{
			Enabled: true,
			Path:    defaultRunLogPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
