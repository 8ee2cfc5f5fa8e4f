package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"runbox/internal/config"
	"runbox/internal/launch"
	"runbox/internal/runtime"
)

func newExecCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "exec <code-file>",
		Short: "Execute a code file in the container runtime under the watcher",
		Long: `Exec stages the given code file, verifies the container engine and runtime
image are available, then runs the file inside the configured container image
through the full watcher lifecycle. The container is removed when it exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.runtimeClient()
			if err != nil {
				return err
			}

			if err := checkRuntime(cmd.Context(), client); err != nil {
				return err
			}

			codePath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve code file: %w", err)
			}
			if _, err := os.Stat(codePath); err != nil {
				return fmt.Errorf("inspect code file: %w", err)
			}

			staged, err := client.Stage(codePath, filepath.Join(cfg.Paths.LogDir, "staging"))
			if err != nil {
				return err
			}
			defer os.Remove(staged)

			opts := launch.OptionsFromConfig(cfg)
			opts.UserCommand = client.Command(staged)
			if timeout := client.Timeout(); timeout > 0 {
				opts.UserTimeout = timeout
			}
			return runLifecycle(cmd, ctx, cfg, opts, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run summary as JSON")
	return cmd
}

func checkRuntime(ctx context.Context, client *runtime.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := client.CheckEngine(checkCtx); err != nil {
		return err
	}
	return client.CheckImage(checkCtx)
}
