package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"runbox/internal/deps"
	"runbox/internal/preflight"
	"runbox/internal/runtime"
	"runbox/internal/services"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var skipEngine bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check paths, binaries, and the container runtime before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// A broken runtime section is itself a preflight finding, not a
			// reason to abort before the other checks report.
			var client *runtime.Client
			var clientResult *preflight.Result
			if !skipEngine {
				client, err = ctx.runtimeClient()
				if err != nil {
					clientResult = &preflight.Result{Name: "Container runtime", Passed: false, Detail: err.Error()}
					client = nil
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, client)
			if clientResult != nil {
				results = append(results, *clientResult)
			}
			binaries := preflight.CheckSystemDeps(cfg)

			passed := preflight.Passed(results) && requiredBinariesAvailable(binaries)

			if jsonOut {
				if err := writePreflightJSON(cmd, results, binaries, passed); err != nil {
					return err
				}
				if !passed {
					return preflightFailed()
				}
				return nil
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Preflight checks", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				kind := statusError
				if result.Passed {
					kind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("External binaries", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, status := range binaries {
				kind := statusOK
				message := status.Command
				if !status.Available {
					message = status.Detail
					if status.Optional {
						kind = statusWarn
					} else {
						kind = statusError
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}

			if !passed {
				return preflightFailed()
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit results as JSON")
	cmd.Flags().BoolVar(&skipEngine, "skip-engine", false, "Skip container engine and image checks")
	return cmd
}

func writePreflightJSON(cmd *cobra.Command, results []preflight.Result, binaries []deps.Status, passed bool) error {
	type jsonCheck struct {
		Name   string `json:"name"`
		Passed bool   `json:"passed"`
		Detail string `json:"detail,omitempty"`
	}
	type jsonBinary struct {
		Name      string `json:"name"`
		Command   string `json:"command"`
		Available bool   `json:"available"`
		Optional  bool   `json:"optional"`
		Detail    string `json:"detail,omitempty"`
	}
	checks := make([]jsonCheck, 0, len(results))
	for _, result := range results {
		checks = append(checks, jsonCheck{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
	}
	bins := make([]jsonBinary, 0, len(binaries))
	for _, status := range binaries {
		bins = append(bins, jsonBinary{
			Name:      status.Name,
			Command:   status.Command,
			Available: status.Available,
			Optional:  status.Optional,
			Detail:    status.Detail,
		})
	}
	return writeJSON(cmd, map[string]any{
		"checks":   checks,
		"binaries": bins,
		"passed":   passed,
	})
}

func requiredBinariesAvailable(statuses []deps.Status) bool {
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			return false
		}
	}
	return true
}

func preflightFailed() error {
	return services.Wrap(services.ErrValidation, "preflight", "checks", "one or more checks failed", nil)
}
