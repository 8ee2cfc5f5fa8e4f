package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"runbox/internal/config"
	"runbox/internal/services"
)

type fakeExecutor struct {
	calls  [][]string
	lines  []string
	err    error
	binary string
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	f.binary = binary
	f.calls = append(f.calls, args)
	for _, line := range f.lines {
		if onStdout != nil {
			onStdout(line)
		}
	}
	return f.err
}

func testRuntimeConfig() config.Runtime {
	return config.Runtime{
		Engine:         "docker",
		Image:          "py-runtime",
		CPUs:           "2.0",
		Memory:         "2048m",
		Network:        "bridge",
		EnvFile:        "/srv/runbox/.env",
		CodeMount:      "/app/code.py",
		TimeoutSeconds: 60,
	}
}

func TestNewRequiresEngineAndImage(t *testing.T) {
	cfg := testRuntimeConfig()
	cfg.Engine = " "
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for missing engine")
	}
	cfg = testRuntimeConfig()
	cfg.Image = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for missing image")
	}
}

func TestCheckEngineReturnsVersionLine(t *testing.T) {
	exec := &fakeExecutor{lines: []string{"Docker version 27.1.1, build 6312585", "extra"}}
	client, err := New(testRuntimeConfig(), WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	version, err := client.CheckEngine(context.Background())
	if err != nil {
		t.Fatalf("CheckEngine: %v", err)
	}
	if version != "Docker version 27.1.1, build 6312585" {
		t.Fatalf("version = %q", version)
	}
	if exec.binary != "docker" {
		t.Fatalf("binary = %q, want docker", exec.binary)
	}
	if got := strings.Join(exec.calls[0], " "); got != "--version" {
		t.Fatalf("args = %q", got)
	}
}

func TestCheckEngineWrapsFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exec: docker: not found")}
	client, err := New(testRuntimeConfig(), WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.CheckEngine(context.Background()); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error %v not marked as external tool failure", err)
	}
}

func TestCheckImageMissingIsNotFound(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("wait command: exit status 1")}
	client, err := New(testRuntimeConfig(), WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = client.CheckImage(context.Background())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error %v not marked as not found", err)
	}
	if got := strings.Join(exec.calls[0], " "); got != "image inspect py-runtime" {
		t.Fatalf("args = %q", got)
	}
}

func TestCommandBuildsContainerArgs(t *testing.T) {
	client, err := New(testRuntimeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := strings.Join(client.Command("/tmp/staging/code-abc.py"), " ")
	want := "docker run --rm --network bridge --cpus 2.0 --memory 2048m " +
		"--env-file /srv/runbox/.env -v /tmp/staging/code-abc.py:/app/code.py:ro py-runtime"
	if got != want {
		t.Fatalf("Command =\n  %s\nwant\n  %s", got, want)
	}
}

func TestCommandOmitsUnsetResources(t *testing.T) {
	cfg := testRuntimeConfig()
	cfg.CPUs = ""
	cfg.Memory = ""
	cfg.EnvFile = ""
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := strings.Join(client.Command("/tmp/code.py"), " ")
	for _, flag := range []string{"--cpus", "--memory", "--env-file"} {
		if strings.Contains(got, flag) {
			t.Fatalf("Command %q should omit %s", got, flag)
		}
	}
}

func TestStageCopiesCodeFile(t *testing.T) {
	client, err := New(testRuntimeConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := filepath.Join(t.TempDir(), "code.py")
	if err := os.WriteFile(src, []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	staging := t.TempDir()
	first, err := client.Stage(src, staging)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	second, err := client.Stage(src, staging)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if first == second {
		t.Fatal("staged paths must be unique per call")
	}
	if filepath.Ext(first) != ".py" {
		t.Fatalf("staged path %q lost the source extension", first)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "print('hi')\n" {
		t.Fatalf("staged content = %q", data)
	}
}
