package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"runbox/internal/filewait"
	"runbox/internal/fileutil"
	"runbox/internal/logging"
	"runbox/internal/sentinel"
	"runbox/internal/services"
)

const runIDLayout = "20060102T150405.000Z"

// Result summarizes one lifecycle run. Exit codes are -1 for processes that
// never ran to completion.
type Result struct {
	RunID           string
	UserExitCode    int
	WatcherExitCode int
	SentinelCreated bool
	UserDuration    time.Duration
	WatcherDuration time.Duration
}

// Launcher drives the run-to-completion lifecycle for one user-code execution:
// start the watcher, await readiness, run user code, flush output, write the
// completion sentinel, join the watcher.
type Launcher struct {
	opts   Options
	logger *slog.Logger
	exec   Executor
	now    func() time.Time
}

// Option configures the launcher.
type Option func(*Launcher)

// WithExecutor injects a custom process executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(l *Launcher) {
		if exec != nil {
			l.exec = exec
		}
	}
}

// WithClock injects a time source (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(l *Launcher) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a launcher after validating options.
func New(opts Options, logger *slog.Logger, options ...Option) (*Launcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	l := &Launcher{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "launcher"),
		exec:   commandExecutor{},
		now:    time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

// Run executes the full lifecycle. Any step failing aborts the run: the
// watcher is stopped and the first failure is returned, wrapped in an
// ExitError when a process exit status should be propagated. The returned
// Result is populated as far as the lifecycle progressed, even on failure.
func (l *Launcher) Run(ctx context.Context) (*Result, error) {
	runID := l.now().UTC().Format(runIDLayout)
	ctx = services.WithRunID(ctx, runID)
	logger := l.logger.With(logging.String(logging.FieldRunID, runID))

	res := &Result{RunID: runID, UserExitCode: -1, WatcherExitCode: -1}

	lock := flock.New(l.opts.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return res, services.Wrap(services.ErrConfiguration, "launcher", "acquire lock", l.opts.LockPath, err)
	}
	if !locked {
		return res, services.Wrap(services.ErrValidation, "launcher", "acquire lock", fmt.Sprintf("another launcher already holds %s", l.opts.LockPath), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release work directory lock", logging.Error(err))
		}
	}()

	if err := l.clearStaleMarkers(logger); err != nil {
		return res, err
	}

	logger.Info("starting watcher",
		logging.String(logging.FieldStep, "start watcher"),
		logging.String("command", strings.Join(l.opts.WatcherCommand, " ")),
	)
	watcherStarted := l.now()
	watcherProc, err := l.exec.Start(ctx, l.commandSpec(l.opts.WatcherCommand))
	if err != nil {
		return res, services.Wrap(services.ErrExternalTool, "launcher", "start watcher", "watcher failed to start", err)
	}
	watcherWait := newProcWait(watcherProc)

	if err := l.awaitReady(ctx, logger, watcherWait); err != nil {
		res.WatcherExitCode = l.stopWatcher(logger, watcherProc, watcherWait)
		res.WatcherDuration = l.now().Sub(watcherStarted)
		return res, err
	}

	userStarted := l.now()
	userCode, userErr := l.runUserCode(ctx, logger)
	res.UserExitCode = userCode
	res.UserDuration = l.now().Sub(userStarted)
	if userErr != nil {
		res.WatcherExitCode = l.stopWatcher(logger, watcherProc, watcherWait)
		res.WatcherDuration = l.now().Sub(watcherStarted)
		return res, userErr
	}

	if err := l.flush(ctx, logger); err != nil {
		res.WatcherExitCode = l.stopWatcher(logger, watcherProc, watcherWait)
		res.WatcherDuration = l.now().Sub(watcherStarted)
		return res, err
	}

	if err := sentinel.Write(l.opts.SentinelPath); err != nil {
		res.WatcherExitCode = l.stopWatcher(logger, watcherProc, watcherWait)
		res.WatcherDuration = l.now().Sub(watcherStarted)
		return res, err
	}
	res.SentinelCreated = true
	logger.Info("sentinel written",
		logging.String(logging.FieldStep, "write sentinel"),
		logging.String("path", l.opts.SentinelPath),
	)

	watcherCode, joinErr := l.joinWatcher(ctx, logger, watcherProc, watcherWait)
	res.WatcherExitCode = watcherCode
	res.WatcherDuration = l.now().Sub(watcherStarted)
	if joinErr != nil {
		return res, joinErr
	}

	logger.Info("run complete",
		logging.Int("user_exit_code", res.UserExitCode),
		logging.Int("watcher_exit_code", res.WatcherExitCode),
		logging.Duration("user_duration", res.UserDuration),
		logging.Duration("watcher_duration", res.WatcherDuration),
	)
	return res, nil
}

func (l *Launcher) clearStaleMarkers(logger *slog.Logger) error {
	exists, err := sentinel.Exists(l.opts.SentinelPath)
	if err != nil {
		return err
	}
	if exists {
		logging.WarnWithContext(logger, "clearing stale completion sentinel", "stale_sentinel",
			logging.String("path", l.opts.SentinelPath),
			logging.String(logging.FieldImpact, "previous run may have been interrupted"),
			logging.String(logging.FieldErrorHint, "verify no other launcher shares this work directory"),
		)
		if err := sentinel.Clear(l.opts.SentinelPath); err != nil {
			return err
		}
	}
	if l.opts.ReadyPath != "" {
		if err := sentinel.Clear(l.opts.ReadyPath); err != nil {
			return err
		}
	}
	return nil
}

// awaitReady blocks until the watcher signals readiness. With a ready path
// configured this is a real handshake; otherwise it degrades to a fixed grace
// wait. A watcher that exits before readiness is a startup failure regardless
// of its exit status.
func (l *Launcher) awaitReady(ctx context.Context, logger *slog.Logger, watcher *procWait) error {
	step := logger.With(logging.String(logging.FieldStep, "await ready"))

	if l.opts.ReadyPath == "" {
		if l.opts.ReadyGrace <= 0 {
			return nil
		}
		step.Debug("no ready marker configured, waiting fixed grace", logging.Duration("grace", l.opts.ReadyGrace))
		timer := time.NewTimer(l.opts.ReadyGrace)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-watcher.Done():
			return watcherExitedEarly(watcher)
		case <-ctx.Done():
			return fmt.Errorf("await ready: %w", ctx.Err())
		}
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- filewait.Wait(waitCtx, l.opts.ReadyPath, l.opts.ReadyTimeout)
	}()

	select {
	case err := <-waitErr:
		switch {
		case err == nil:
			step.Info("watcher ready", logging.String("path", l.opts.ReadyPath))
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			return services.Wrap(services.ErrTimeout, "launcher", "await ready", fmt.Sprintf("watcher not ready within %s", l.opts.ReadyTimeout), err)
		case ctx.Err() != nil:
			return fmt.Errorf("await ready: %w", ctx.Err())
		default:
			return services.Wrap(services.ErrExternalTool, "launcher", "await ready", "readiness watch failed", err)
		}
	case <-watcher.Done():
		return watcherExitedEarly(watcher)
	}
}

func watcherExitedEarly(watcher *procWait) error {
	code := exitStatus(watcher.Err())
	return services.Wrap(services.ErrExternalTool, "launcher", "await ready",
		fmt.Sprintf("watcher exited with status %d before signalling readiness", code), nil)
}

// runUserCode executes the user command synchronously and translates its exit
// into the fail-fast contract: non-zero exits and timeouts abort the run.
func (l *Launcher) runUserCode(ctx context.Context, logger *slog.Logger) (int, error) {
	step := logger.With(logging.String(logging.FieldStep, "run user code"))
	step.Info("running user code", logging.String("command", strings.Join(l.opts.UserCommand, " ")))

	userCtx := ctx
	if l.opts.UserTimeout > 0 {
		var cancel context.CancelFunc
		userCtx, cancel = context.WithTimeout(ctx, l.opts.UserTimeout)
		defer cancel()
	}

	proc, err := l.exec.Start(userCtx, l.commandSpec(l.opts.UserCommand))
	if err != nil {
		return -1, services.Wrap(services.ErrUserCode, "launcher", "run user code", "user code failed to start", err)
	}
	wait := newProcWait(proc)
	<-wait.Done()

	waitErr := wait.Err()
	if waitErr == nil {
		step.Info("user code succeeded")
		return 0, nil
	}

	code := exitStatus(waitErr)
	if errors.Is(userCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		wrapped := services.Wrap(services.ErrTimeout, "launcher", "run user code",
			fmt.Sprintf("timed out after %s", l.opts.UserTimeout), waitErr)
		return code, exitFailure(code, wrapped)
	}
	if ctx.Err() != nil {
		return code, fmt.Errorf("run user code: %w", ctx.Err())
	}
	wrapped := services.Wrap(services.ErrUserCode, "launcher", "run user code",
		fmt.Sprintf("exit status %d", code), waitErr)
	return code, exitFailure(code, wrapped)
}

// flush makes user-code output durable before the completion signal: every
// regular file under the work directory is fsynced, then the directory itself.
func (l *Launcher) flush(ctx context.Context, logger *slog.Logger) error {
	step := logger.With(logging.String(logging.FieldStep, "flush output"))
	if err := fileutil.SyncTree(l.opts.WorkDir); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	step.Debug("work directory synced")
	if l.opts.FlushSettle > 0 {
		timer := time.NewTimer(l.opts.FlushSettle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return fmt.Errorf("flush output: %w", ctx.Err())
		}
	}
	return nil
}

// joinWatcher blocks until the watcher exits and propagates its status. With
// no drain timeout configured this wait is unbounded.
func (l *Launcher) joinWatcher(ctx context.Context, logger *slog.Logger, proc Process, wait *procWait) (int, error) {
	step := logger.With(logging.String(logging.FieldStep, "join watcher"))

	var drain <-chan time.Time
	if l.opts.DrainTimeout > 0 {
		timer := time.NewTimer(l.opts.DrainTimeout)
		defer timer.Stop()
		drain = timer.C
	}

	select {
	case <-wait.Done():
	case <-drain:
		code := l.stopWatcher(step, proc, wait)
		return code, services.Wrap(services.ErrTimeout, "launcher", "join watcher",
			fmt.Sprintf("watcher still running %s after sentinel", l.opts.DrainTimeout), nil)
	case <-ctx.Done():
		code := l.stopWatcher(step, proc, wait)
		return code, fmt.Errorf("join watcher: %w", ctx.Err())
	}

	code := exitStatus(wait.Err())
	if code != 0 {
		wrapped := services.Wrap(services.ErrExternalTool, "launcher", "join watcher",
			fmt.Sprintf("watcher exited with status %d", code), nil)
		return code, exitFailure(code, wrapped)
	}
	step.Info("watcher exited cleanly")
	return 0, nil
}

// stopWatcher terminates the watcher during an abort: SIGTERM, a grace
// window, then SIGKILL to the process group. Returns the watcher's exit code.
func (l *Launcher) stopWatcher(logger *slog.Logger, proc Process, wait *procWait) int {
	select {
	case <-wait.Done():
		return exitStatus(wait.Err())
	default:
	}

	logger.Info("stopping watcher", logging.Duration("grace", l.opts.StopGrace))
	if err := proc.Signal(unix.SIGTERM); err != nil {
		logger.Warn("failed to signal watcher", logging.Error(err))
	}

	timer := time.NewTimer(l.opts.StopGrace)
	defer timer.Stop()
	select {
	case <-wait.Done():
	case <-timer.C:
		logger.Warn("watcher ignored SIGTERM, killing process group", logging.Alert("watcher_kill"))
		_ = proc.Signal(unix.SIGKILL)
		<-wait.Done()
	}
	return exitStatus(wait.Err())
}

func (l *Launcher) commandSpec(command []string) CommandSpec {
	stdout := l.opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := l.opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	var env []string
	if len(l.opts.Env) > 0 {
		env = append(os.Environ(), l.opts.Env...)
	}
	return CommandSpec{
		Command: command,
		Dir:     l.opts.WorkDir,
		Env:     env,
		Stdout:  stdout,
		Stderr:  stderr,
	}
}
