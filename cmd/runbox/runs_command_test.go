package main

import (
	"errors"
	"testing"

	"runbox/internal/services"
	"runbox/internal/testsupport"
)

func TestRunsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestRunsShowUnknownRunFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"runs", "show", "no-such-run"}, env.configPath)
	if err == nil {
		t.Fatal("expected runs show to fail for an unknown run")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRunsClearRemovesRecords(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.BeginRun(t, store, "20260101T080000.000Z")
	testsupport.BeginRun(t, store, "20260101T090000.000Z")

	out, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "20260101T090000.000Z")
	requireContains(t, out, "Running")

	out, _, err = runCLI(t, []string{"runs", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("runs clear: %v", err)
	}
	requireContains(t, out, "Removed 2 run(s)")

	out, _, err = runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list after clear: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestRunsCommandsRequireRunLogEnabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithRunLogDisabled())

	_, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err == nil {
		t.Fatal("expected runs list to fail with history disabled")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
