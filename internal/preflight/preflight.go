package preflight

import (
	"context"

	"runbox/internal/config"
	"runbox/internal/runtime"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. Local
// checks always run; engine and image checks shell out to the container
// engine and only run when a runtime client is provided.
func RunAll(ctx context.Context, cfg *config.Config, client *runtime.Client) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Work directory (always checked)
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))

	// Log directory (when configured)
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	// Env file handed to the container (when configured)
	if cfg.Runtime.EnvFile != "" {
		results = append(results, CheckEnvFile(cfg.Runtime.EnvFile))
	}

	results = append(results, CheckStaleSentinel(cfg.SentinelPath()))

	if client != nil {
		results = append(results, CheckEngine(ctx, client), CheckImage(ctx, client))
	}

	return results
}

// Passed reports whether every non-optional check succeeded.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
