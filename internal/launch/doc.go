// Package launch implements the run-to-completion lifecycle that ties a
// result watcher to one execution of untrusted user code.
//
// A run proceeds through fixed steps: acquire the work directory lock, clear
// stale markers, start the watcher in the background, wait for its readiness
// signal, run the user command synchronously, fsync the work directory, write
// the empty completion sentinel, and finally block until the watcher exits.
// User code only starts after the watcher is up, and the sentinel is only
// written after user output is durable, so the watcher can never miss files.
//
// Failures abort the run at the step where they occur. Process exit statuses
// are preserved through ExitError so callers can propagate them; a user-code
// failure takes precedence over the watcher's status.
package launch
