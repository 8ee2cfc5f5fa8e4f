package runlog

import (
	"time"

	"runbox/internal/services"
)

// Status describes the terminal state of a recorded run.
type Status string

const (
	StatusRunning       Status = "running"
	StatusSucceeded     Status = "succeeded"
	StatusUserFailed    Status = "user-failed"
	StatusWatcherFailed Status = "watcher-failed"
	StatusTimedOut      Status = "timed-out"
	StatusFailed        Status = "failed"
)

// StatusFromError maps a lifecycle outcome onto a run status. User-code
// failures and timeouts take precedence over the generic failure bucket.
func StatusFromError(err error) Status {
	if err == nil {
		return StatusSucceeded
	}
	switch services.Classify(err) {
	case services.ClassUserCode:
		return StatusUserFailed
	case services.ClassTimeout:
		return StatusTimedOut
	case services.ClassExternalTool:
		return StatusWatcherFailed
	default:
		return StatusFailed
	}
}

// Record is one row of run history.
type Record struct {
	ID              string
	RunID           string
	Status          Status
	WorkDir         string
	UserCommand     string
	WatcherCommand  string
	UserExitCode    int
	WatcherExitCode int
	SentinelCreated bool
	UserDuration    time.Duration
	WatcherDuration time.Duration
	ArtifactURLs    []string
	ErrorMessage    string
	StartedAt       time.Time
	FinishedAt      *time.Time
}

// Finished reports whether the run reached a terminal status.
func (r *Record) Finished() bool {
	return r != nil && r.Status != StatusRunning
}
