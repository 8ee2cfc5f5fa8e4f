// Package services defines shared utilities consumed by the launcher lifecycle
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and lifecycle step names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classifications (user code vs watcher vs timeout).
//
// Use these helpers when wiring new lifecycle logic so operational behaviour
// (error handling, observability) stays uniform across the system.
package services
