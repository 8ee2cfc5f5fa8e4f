package launch

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"runbox/internal/services"
)

func TestExitStatusUnwrapsThroughWrappedErrors(t *testing.T) {
	inner := services.Wrap(services.ErrUserCode, "launcher", "run user code", "exit status 3", nil)
	err := exitFailure(3, inner)

	code, ok := ExitStatus(err)
	if !ok || code != 3 {
		t.Fatalf("ExitStatus = (%d, %v), want (3, true)", code, ok)
	}
	if !errors.Is(err, services.ErrUserCode) {
		t.Fatalf("marker lost through ExitError: %v", err)
	}
	if err.Error() != inner.Error() {
		t.Fatalf("ExitError message %q should delegate to the wrapped error", err.Error())
	}
}

func TestExitFailureClampsNonPositiveCodes(t *testing.T) {
	err := exitFailure(-1, errors.New("boom"))
	if code, ok := ExitStatus(err); !ok || code != 1 {
		t.Fatalf("ExitStatus = (%d, %v), want (1, true)", code, ok)
	}
}

func TestExitStatusAbsentOnPlainErrors(t *testing.T) {
	if _, ok := ExitStatus(errors.New("plain")); ok {
		t.Fatal("plain error must not carry an exit status")
	}
}

func TestCommandExecutorReportsExitCodes(t *testing.T) {
	exec := commandExecutor{}
	proc, err := exec.Start(context.Background(), CommandSpec{
		Command: []string{"/bin/sh", "-c", "exit 4"},
		Dir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if code := exitStatus(proc.Wait()); code != 4 {
		t.Fatalf("exit code = %d, want 4", code)
	}
}

func TestCommandExecutorSignalsProcessGroup(t *testing.T) {
	exec := commandExecutor{}
	proc, err := exec.Start(context.Background(), CommandSpec{
		Command: []string{"/bin/sh", "-c", "sleep 10"},
		Dir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	wait := newProcWait(proc)
	if err := proc.Signal(unix.SIGTERM); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	<-wait.Done()
	if code := exitStatus(wait.Err()); code != 143 {
		t.Fatalf("exit code = %d, want 143 (SIGTERM)", code)
	}
}
