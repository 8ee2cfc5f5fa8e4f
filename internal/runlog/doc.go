// Package runlog persists run history in a local SQLite database. Recording
// is best effort: a failure to write history never fails the run itself.
package runlog
