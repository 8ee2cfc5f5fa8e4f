package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"runbox/internal/artifacts"
	"runbox/internal/config"
	"runbox/internal/launch"
	"runbox/internal/logging"
	"runbox/internal/runlog"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Run the configured user command under the result watcher",
		Long: `Launch starts the result watcher in the background, waits for it to become
ready, runs the configured user command to completion, flushes the work
directory, writes the completion sentinel, and blocks until the watcher has
uploaded everything and exited. Process exit statuses are propagated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := launch.OptionsFromConfig(cfg)
			return runLifecycle(cmd, ctx, cfg, opts, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run summary as JSON")
	return cmd
}

type runSummary struct {
	RunID           string   `json:"run_id"`
	Status          string   `json:"status"`
	UserExitCode    int      `json:"user_exit_code"`
	WatcherExitCode int      `json:"watcher_exit_code"`
	SentinelCreated bool     `json:"sentinel_created"`
	UserDuration    string   `json:"user_duration"`
	WatcherDuration string   `json:"watcher_duration"`
	ArtifactURLs    []string `json:"artifact_urls,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// runLifecycle drives one launcher run and handles everything around it:
// signal wiring, output capture for the uploaded-files listing, run history
// recording, and the final summary. The lifecycle error is returned as-is so
// main can propagate exit statuses.
func runLifecycle(cmd *cobra.Command, cctx *commandContext, cfg *config.Config, opts launch.Options, jsonOut bool) error {
	logger, err := cctx.lifecycleLogger(jsonOut)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
	defer stop()

	// Watcher and user output stream through to the terminal while a copy is
	// kept for the uploaded-files listing. In JSON mode stdout carries only
	// the summary, so process output moves to stderr.
	processOut := cmd.OutOrStdout()
	if jsonOut {
		processOut = cmd.ErrOrStderr()
	}
	var captured bytes.Buffer
	opts.Stdout = io.MultiWriter(processOut, &captured)
	opts.Stderr = cmd.ErrOrStderr()
	fmt.Fprintf(os.Stderr, "DBG wiring processOut=%p\n", processOut)

	launcher, err := launch.New(opts, logger)
	if err != nil {
		return err
	}

	var store *runlog.Store
	if cfg.RunLog.Enabled {
		store, err = runlog.Open(cfg)
		if err != nil {
			logger.Warn("run history unavailable", logging.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	res, runErr := launcher.Run(sigCtx)
	if buf, ok := processOut.(*bytes.Buffer); ok {
		fmt.Fprintf(os.Stderr, "DBG after-run processOut=%p len=%d captured=%d\n", buf, buf.Len(), captured.Len())
	}
	report := artifacts.ScanString(captured.String())

	if store != nil && res != nil {
		recordRun(logger, store, cfg, opts, res, report, runErr)
	}

	summary := buildSummary(res, report, runErr)
	if jsonOut {
		if err := writeJSON(cmd, summary); err != nil {
			return err
		}
		return runErr
	}
	printSummary(cmd.OutOrStdout(), summary)
	return runErr
}

// recordRun persists history with a background context: a canceled run must
// still be recorded.
func recordRun(logger *slog.Logger, store *runlog.Store, cfg *config.Config, opts launch.Options, res *launch.Result, report artifacts.Report, runErr error) {
	ctx := context.Background()
	rec, err := store.Begin(ctx, res.RunID, cfg.Paths.WorkDir, opts.UserCommand, opts.WatcherCommand)
	if err != nil {
		logger.Warn("record run start", logging.Error(err))
		return
	}

	now := time.Now().UTC()
	rec.Status = runlog.StatusFromError(runErr)
	rec.UserExitCode = res.UserExitCode
	rec.WatcherExitCode = res.WatcherExitCode
	rec.SentinelCreated = res.SentinelCreated
	rec.UserDuration = res.UserDuration
	rec.WatcherDuration = res.WatcherDuration
	rec.ArtifactURLs = report.URLs
	if runErr != nil {
		rec.ErrorMessage = runErr.Error()
	}
	rec.FinishedAt = &now
	if err := store.Update(ctx, rec); err != nil {
		logger.Warn("record run outcome", logging.Error(err))
	}
}

func buildSummary(res *launch.Result, report artifacts.Report, runErr error) runSummary {
	summary := runSummary{
		Status:       string(runlog.StatusFromError(runErr)),
		ArtifactURLs: report.URLs,
	}
	if res != nil {
		summary.RunID = res.RunID
		summary.UserExitCode = res.UserExitCode
		summary.WatcherExitCode = res.WatcherExitCode
		summary.SentinelCreated = res.SentinelCreated
		summary.UserDuration = res.UserDuration.Round(time.Millisecond).String()
		summary.WatcherDuration = res.WatcherDuration.Round(time.Millisecond).String()
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	return summary
}

func printSummary(out io.Writer, summary runSummary) {
	fmt.Fprintf(out, "Run %s: %s\n", summary.RunID, summary.Status)
	fmt.Fprintf(out, "  user exit code:    %d (%s)\n", summary.UserExitCode, summary.UserDuration)
	fmt.Fprintf(out, "  watcher exit code: %d (%s)\n", summary.WatcherExitCode, summary.WatcherDuration)
	fmt.Fprintf(out, "  sentinel written:  %s\n", yesNo(summary.SentinelCreated))
	if len(summary.ArtifactURLs) > 0 {
		fmt.Fprintln(out, "Uploaded files:")
		for _, url := range summary.ArtifactURLs {
			fmt.Fprintf(out, "  %s\n", url)
		}
	}
}
