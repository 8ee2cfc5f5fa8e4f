package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const recordColumns = "id, run_id, status, work_dir, user_command, watcher_command, " +
	"user_exit_code, watcher_exit_code, sentinel_created, user_duration_ms, " +
	"watcher_duration_ms, artifact_urls_json, error_message, started_at, finished_at"

// Begin inserts a new run in the running state and returns its record.
func (s *Store) Begin(ctx context.Context, runID, workDir string, userCommand, watcherCommand []string) (*Record, error) {
	rec := &Record{
		ID:              uuid.NewString(),
		RunID:           runID,
		Status:          StatusRunning,
		WorkDir:         workDir,
		UserCommand:     strings.Join(userCommand, " "),
		WatcherCommand:  strings.Join(watcherCommand, " "),
		UserExitCode:    -1,
		WatcherExitCode: -1,
		StartedAt:       time.Now().UTC(),
	}

	err := s.execWithRetry(ctx,
		`INSERT INTO runs (
            id, run_id, status, work_dir, user_command, watcher_command,
            user_exit_code, watcher_exit_code, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.RunID,
		string(rec.Status),
		rec.WorkDir,
		nullableString(rec.UserCommand),
		nullableString(rec.WatcherCommand),
		rec.UserExitCode,
		rec.WatcherExitCode,
		rec.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// Update persists the mutable fields of an existing record.
func (s *Store) Update(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}

	var urlsJSON any
	if len(rec.ArtifactURLs) > 0 {
		data, err := json.Marshal(rec.ArtifactURLs)
		if err != nil {
			return fmt.Errorf("marshal artifact urls: %w", err)
		}
		urlsJSON = string(data)
	}

	err := s.execWithRetry(ctx,
		`UPDATE runs SET
            status = ?, user_exit_code = ?, watcher_exit_code = ?,
            sentinel_created = ?, user_duration_ms = ?, watcher_duration_ms = ?,
            artifact_urls_json = ?, error_message = ?, finished_at = ?
        WHERE id = ?`,
		string(rec.Status),
		rec.UserExitCode,
		rec.WatcherExitCode,
		boolToInt(rec.SentinelCreated),
		rec.UserDuration.Milliseconds(),
		rec.WatcherDuration.Milliseconds(),
		urlsJSON,
		nullableString(rec.ErrorMessage),
		nullableTime(rec.FinishedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// Get fetches a record by its ID or launcher run ID. Returns nil when no run
// matches.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM runs WHERE id = ? OR run_id = ? LIMIT 1`, id, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// List returns records newest first, up to limit (zero means all).
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// Clear deletes all history and returns the number of removed rows.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `DELETE FROM runs`)
		if execErr != nil {
			return execErr
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return removed, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id              string
		runID           string
		statusStr       string
		workDir         string
		userCommand     sql.NullString
		watcherCommand  sql.NullString
		userExitCode    int64
		watcherExitCode int64
		sentinelCreated sql.NullInt64
		userDurationMS  int64
		watcherDurMS    int64
		urlsJSON        sql.NullString
		errorMessage    sql.NullString
		startedRaw      string
		finishedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&statusStr,
		&workDir,
		&userCommand,
		&watcherCommand,
		&userExitCode,
		&watcherExitCode,
		&sentinelCreated,
		&userDurationMS,
		&watcherDurMS,
		&urlsJSON,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:              id,
		RunID:           runID,
		Status:          Status(statusStr),
		WorkDir:         workDir,
		UserCommand:     userCommand.String,
		WatcherCommand:  watcherCommand.String,
		UserExitCode:    int(userExitCode),
		WatcherExitCode: int(watcherExitCode),
		UserDuration:    time.Duration(userDurationMS) * time.Millisecond,
		WatcherDuration: time.Duration(watcherDurMS) * time.Millisecond,
		ErrorMessage:    errorMessage.String,
	}
	if sentinelCreated.Valid {
		rec.SentinelCreated = sentinelCreated.Int64 != 0
	}
	if urlsJSON.Valid && urlsJSON.String != "" {
		if err := json.Unmarshal([]byte(urlsJSON.String), &rec.ArtifactURLs); err != nil {
			return nil, fmt.Errorf("decode artifact urls: %w", err)
		}
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		rec.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			rec.FinishedAt = &finished
		}
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
