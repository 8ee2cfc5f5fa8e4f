package main

import (
	"errors"
	"os"
	"strings"
	"testing"

	"runbox/internal/services"
	"runbox/internal/testsupport"
)

func stubEngine(t *testing.T, versionLine string) {
	t.Helper()
	binDir := t.TempDir()
	testsupport.Script(t, binDir, "docker",
		"if [ \"$1\" = \"--version\" ]; then echo \""+versionLine+"\"; fi\nexit 0\n")
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestPreflightCommandAllChecksPass(t *testing.T) {
	stubEngine(t, "Docker version 26.1.0, build abc1234")
	env := setupCLITestEnv(t,
		testsupport.WithWatcherCommand("/bin/sh", "-c", "true"),
		testsupport.WithUserCommand("/bin/sh", "-c", "true"),
	)

	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("preflight: %v (output: %s)", err, out)
	}
	requireContains(t, out, "Work directory")
	requireContains(t, out, "Docker version 26.1.0")
	requireContains(t, out, "Runtime image")
	requireContains(t, out, "Container engine")
	requireContains(t, out, "All checks passed")
}

func TestPreflightCommandSkipEngine(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithWatcherCommand("/bin/sh", "-c", "true"),
		testsupport.WithUserCommand("/bin/sh", "-c", "true"),
	)

	out, _, err := runCLI(t, []string{"preflight", "--skip-engine"}, env.configPath)
	if err != nil {
		t.Fatalf("preflight --skip-engine: %v (output: %s)", err, out)
	}
	if strings.Contains(out, "Runtime image") {
		t.Fatalf("engine checks should be skipped, got %q", out)
	}
	requireContains(t, out, "All checks passed")
}

func TestPreflightCommandFailsOnMissingEngineBinary(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithRuntimeEngine("runbox-missing-engine"),
		testsupport.WithWatcherCommand("/bin/sh", "-c", "true"),
		testsupport.WithUserCommand("/bin/sh", "-c", "true"),
	)

	out, _, err := runCLI(t, []string{"preflight", "--skip-engine"}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight to fail when the engine binary is missing")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	requireContains(t, out, "not found")
}

func TestPreflightCommandJSONReportsChecks(t *testing.T) {
	stubEngine(t, "Docker version 26.1.0, build abc1234")
	env := setupCLITestEnv(t,
		testsupport.WithWatcherCommand("/bin/sh", "-c", "true"),
		testsupport.WithUserCommand("/bin/sh", "-c", "true"),
	)

	out, _, err := runCLI(t, []string{"preflight", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("preflight --json: %v (output: %s)", err, out)
	}
	requireContains(t, out, `"passed": true`)
	requireContains(t, out, `"Container engine"`)
	requireContains(t, out, `"Completion marker"`)
}
