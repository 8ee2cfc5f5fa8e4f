package launch

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// CommandSpec describes one external command.
type CommandSpec struct {
	Command []string
	Dir     string
	Env     []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Process is a started external command.
type Process interface {
	// Wait blocks until the process exits and returns its terminal error,
	// if any. Wait must be called at most once.
	Wait() error
	// Signal delivers sig to the process group.
	Signal(sig os.Signal) error
	PID() int
}

// Executor abstracts process creation for testability.
type Executor interface {
	Start(ctx context.Context, spec CommandSpec) (Process, error)
}

type commandExecutor struct{}

func (commandExecutor) Start(ctx context.Context, spec CommandSpec) (Process, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("command required")
	}
	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	// Children get their own process group so signals and context
	// cancellation reach the whole tree, not just the direct child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: cmd}, nil
}

type osProcess struct {
	cmd *exec.Cmd
}

func (p *osProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *osProcess) Signal(sig os.Signal) error {
	sysSig, ok := sig.(syscall.Signal)
	if !ok {
		return p.cmd.Process.Signal(sig)
	}
	return unix.Kill(-p.cmd.Process.Pid, sysSig)
}

func (p *osProcess) PID() int {
	return p.cmd.Process.Pid
}

// procWait reaps a process exactly once while letting multiple lifecycle steps
// observe completion.
type procWait struct {
	done chan struct{}
	err  error
}

func newProcWait(p Process) *procWait {
	w := &procWait{done: make(chan struct{})}
	go func() {
		w.err = p.Wait()
		close(w.done)
	}()
	return w
}

// Done is closed once the process has been reaped.
func (w *procWait) Done() <-chan struct{} {
	return w.done
}

// Err returns the Wait result. Only valid after Done is closed.
func (w *procWait) Err() error {
	return w.err
}

// exitStatus extracts a shell-style exit code from a Wait error. Signal
// terminations map to 128+signal. Unknown errors map to -1.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}
	return -1
}
