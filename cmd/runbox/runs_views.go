package main

import (
	"fmt"
	"strings"
	"time"

	"runbox/internal/runlog"
)

type runRecordView struct {
	ID              string   `json:"id"`
	RunID           string   `json:"run_id"`
	Status          string   `json:"status"`
	WorkDir         string   `json:"work_dir"`
	UserCommand     string   `json:"user_command"`
	WatcherCommand  string   `json:"watcher_command"`
	UserExitCode    int      `json:"user_exit_code"`
	WatcherExitCode int      `json:"watcher_exit_code"`
	SentinelCreated bool     `json:"sentinel_created"`
	UserDuration    string   `json:"user_duration"`
	WatcherDuration string   `json:"watcher_duration"`
	ArtifactURLs    []string `json:"artifact_urls,omitempty"`
	Error           string   `json:"error,omitempty"`
	StartedAt       string   `json:"started_at"`
	FinishedAt      string   `json:"finished_at,omitempty"`
}

func buildRunRecordView(rec *runlog.Record) runRecordView {
	view := runRecordView{
		ID:              rec.ID,
		RunID:           rec.RunID,
		Status:          string(rec.Status),
		WorkDir:         rec.WorkDir,
		UserCommand:     rec.UserCommand,
		WatcherCommand:  rec.WatcherCommand,
		UserExitCode:    rec.UserExitCode,
		WatcherExitCode: rec.WatcherExitCode,
		SentinelCreated: rec.SentinelCreated,
		UserDuration:    rec.UserDuration.Round(time.Millisecond).String(),
		WatcherDuration: rec.WatcherDuration.Round(time.Millisecond).String(),
		ArtifactURLs:    rec.ArtifactURLs,
		Error:           rec.ErrorMessage,
		StartedAt:       rec.StartedAt.UTC().Format(time.RFC3339),
	}
	if rec.FinishedAt != nil {
		view.FinishedAt = rec.FinishedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func buildRunRows(records []*runlog.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.RunID,
			formatRunStatus(string(rec.Status)),
			formatExitCell(rec.UserExitCode),
			formatExitCell(rec.WatcherExitCode),
			fmt.Sprintf("%d", len(rec.ArtifactURLs)),
			formatRunTime(rec.StartedAt),
		})
	}
	return rows
}

func formatRunStatus(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "-")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

// formatExitCell renders an exit code cell; -1 means the process never ran.
func formatExitCell(code int) string {
	if code < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", code)
}

func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
