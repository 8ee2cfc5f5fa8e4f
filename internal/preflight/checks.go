package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"runbox/internal/config"
	"runbox/internal/deps"
	"runbox/internal/runtime"
	"runbox/internal/sentinel"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEnvFile verifies the env file passed to the container exists and is
// readable. The engine fails the run outright when it is missing.
func CheckEnvFile(path string) Result {
	const name = "Env file"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckStaleSentinel reports whether a completion marker from a previous run
// is still present. The launcher clears it automatically, but its presence
// usually means the last run was interrupted.
func CheckStaleSentinel(path string) Result {
	const name = "Completion marker"
	exists, err := sentinel.Exists(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if exists {
		return Result{Name: name, Detail: fmt.Sprintf("%s (stale marker present; previous run may have been interrupted)", path)}
	}
	return Result{Name: name, Passed: true, Detail: "none"}
}

// CheckEngine verifies the container engine CLI responds. It uses a 10-second
// timeout and a single attempt.
func CheckEngine(ctx context.Context, client *runtime.Client) Result {
	const name = "Container engine"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	version, err := client.CheckEngine(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeEngineError(client.Binary(), err)}
	}
	return Result{Name: name, Passed: true, Detail: version}
}

// CheckImage verifies the runtime image is available locally.
func CheckImage(ctx context.Context, client *runtime.Client) Result {
	const name = "Runtime image"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.CheckImage(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (pull or build it first)", client.Image())}
	}
	return Result{Name: name, Passed: true, Detail: client.Image()}
}

// CheckSystemDeps evaluates the binaries every run shells out to. Both the
// preflight command and the launch path use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Container engine",
			Command:     cfg.EngineBinary(),
			Description: "Required to execute user code in the runtime image",
		},
	}
	if len(cfg.Watcher.Command) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "Watcher interpreter",
			Command:     cfg.Watcher.Command[0],
			Description: "Required to observe and upload user output",
		})
	}
	if len(cfg.UserCode.Command) > 0 {
		requirements = append(requirements, deps.Requirement{
			Name:        "User code interpreter",
			Command:     cfg.UserCode.Command[0],
			Description: "Default command for direct (non-container) launches",
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeEngineError(binary string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s did not respond (engine daemon down?)", binary)
	}
	return err.Error()
}
