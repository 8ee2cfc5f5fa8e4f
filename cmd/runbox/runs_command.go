package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"runbox/internal/runlog"
	"runbox/internal/services"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded run history",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunLog(func(store *runlog.Store) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]runRecordView, 0, len(records))
					for _, rec := range records {
						views = append(views, buildRunRecordView(rec))
					}
					return writeJSON(cmd, map[string]any{"runs": views})
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				table := renderTable(
					[]string{"Run ID", "Status", "User", "Watcher", "Uploads", "Started"},
					buildRunRows(records),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit runs as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunLog(func(store *runlog.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if rec == nil {
					return services.Wrap(services.ErrNotFound, "runs", "show", fmt.Sprintf("run %s not found", args[0]), nil)
				}
				if jsonOut {
					return writeJSON(cmd, buildRunRecordView(rec))
				}
				printRunRecord(cmd, rec)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run as JSON")
	return cmd
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunLog(func(store *runlog.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the result as JSON")
	return cmd
}

func printRunRecord(cmd *cobra.Command, rec *runlog.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %s\n", rec.RunID, rec.Status)
	fmt.Fprintf(out, "  work dir:          %s\n", rec.WorkDir)
	fmt.Fprintf(out, "  user command:      %s\n", rec.UserCommand)
	fmt.Fprintf(out, "  watcher command:   %s\n", rec.WatcherCommand)
	fmt.Fprintf(out, "  user exit code:    %s (%s)\n", formatExitCell(rec.UserExitCode), rec.UserDuration.Round(time.Millisecond))
	fmt.Fprintf(out, "  watcher exit code: %s (%s)\n", formatExitCell(rec.WatcherExitCode), rec.WatcherDuration.Round(time.Millisecond))
	fmt.Fprintf(out, "  sentinel written:  %s\n", yesNo(rec.SentinelCreated))
	fmt.Fprintf(out, "  started:           %s\n", formatRunTime(rec.StartedAt))
	if rec.FinishedAt != nil {
		fmt.Fprintf(out, "  finished:          %s\n", formatRunTime(*rec.FinishedAt))
	}
	if rec.ErrorMessage != "" {
		fmt.Fprintf(out, "  error:             %s\n", rec.ErrorMessage)
	}
	if len(rec.ArtifactURLs) > 0 {
		fmt.Fprintln(out, "Uploaded files:")
		for _, url := range rec.ArtifactURLs {
			fmt.Fprintf(out, "  %s\n", url)
		}
	}
}
