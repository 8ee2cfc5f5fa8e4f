package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Script writes an executable shell script into dir and returns its path.
func Script(t testing.TB, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// PollingWatcherScript returns a watcher body that touches the ready marker,
// polls for the completion sentinel in the working directory, and then runs
// the given epilogue. The poll is bounded so a broken test cannot hang.
func PollingWatcherScript(epilogue string) string {
	return fmt.Sprintf(`touch .watcher-ready
i=0
while [ ! -e .done ]; do
  i=$((i+1))
  if [ "$i" -gt 100 ]; then exit 7; fi
  sleep 0.05
done
%s
`, epilogue)
}
