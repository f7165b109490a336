// ABOUTME: Database operations for sync_state and sync_runs tables
// ABOUTME: Manages sync tokens, consecutive error counts, and per-pass run history
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncState represents the persisted sync position for a calendar pair.
// A nil SyncToken means the next pass must be a full sync.
type SyncState struct {
	Pair         string
	SyncToken    *string
	ErrorCount   int
	LastSyncTime *time.Time
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SyncRun is one row of the per-pass history.
type SyncRun struct {
	ID           string
	Pair         string
	Mode         string
	CreatedCount int
	UpdatedCount int
	DeletedCount int
	Status       string
	ErrorMessage *string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// GetSyncState retrieves the sync state for a pair. Returns nil when the
// pair has never synced.
func GetSyncState(db *sql.DB, pair string) (*SyncState, error) {
	var state SyncState
	var syncToken sql.NullString
	var lastSyncTime sql.NullTime
	var status sql.NullString
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT pair, sync_token, error_count, last_sync_time, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE pair = ?
	`, pair).Scan(
		&state.Pair,
		&syncToken,
		&state.ErrorCount,
		&lastSyncTime,
		&status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if syncToken.Valid {
		state.SyncToken = &syncToken.String
	}
	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	if status.Valid {
		state.Status = status.String
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}

	return &state, nil
}

// UpdateSyncStatus updates the sync status for a pair.
func UpdateSyncStatus(db *sql.DB, pair, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (pair, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(pair) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, pair, status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// UpdateSyncToken stores a fresh sync token, marks the pair idle, and
// resets the consecutive error count.
func UpdateSyncToken(db *sql.DB, pair, token string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (pair, sync_token, error_count, last_sync_time, status, created_at, updated_at)
		VALUES (?, ?, 0, CURRENT_TIMESTAMP, 'idle', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(pair) DO UPDATE SET
			sync_token = excluded.sync_token,
			error_count = 0,
			last_sync_time = CURRENT_TIMESTAMP,
			status = 'idle',
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, pair, token)

	if err != nil {
		return fmt.Errorf("failed to update sync token: %w", err)
	}

	return nil
}

// ClearSyncToken drops the sync token so the next pass performs a full sync.
func ClearSyncToken(db *sql.DB, pair string) error {
	_, err := db.Exec(`
		UPDATE sync_state SET
			sync_token = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE pair = ?
	`, pair)

	if err != nil {
		return fmt.Errorf("failed to clear sync token: %w", err)
	}

	return nil
}

// IncrementErrorCount bumps the consecutive transient-error counter.
func IncrementErrorCount(db *sql.DB, pair string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (pair, error_count, status, created_at, updated_at)
		VALUES (?, 1, 'error', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(pair) DO UPDATE SET
			error_count = error_count + 1,
			updated_at = CURRENT_TIMESTAMP
	`, pair)

	if err != nil {
		return fmt.Errorf("failed to increment error count: %w", err)
	}

	return nil
}

// ResetErrorCount zeroes the consecutive transient-error counter.
func ResetErrorCount(db *sql.DB, pair string) error {
	_, err := db.Exec(`
		UPDATE sync_state SET
			error_count = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE pair = ?
	`, pair)

	if err != nil {
		return fmt.Errorf("failed to reset error count: %w", err)
	}

	return nil
}

// ClearSyncState removes the sync state row entirely (force-full reset).
func ClearSyncState(db *sql.DB, pair string) error {
	_, err := db.Exec(`DELETE FROM sync_state WHERE pair = ?`, pair)
	if err != nil {
		return fmt.Errorf("failed to clear sync state: %w", err)
	}

	return nil
}

// CreateSyncRun records the start of a sync pass.
func CreateSyncRun(db *sql.DB, id, pair, mode string) error {
	_, err := db.Exec(`
		INSERT INTO sync_runs (id, pair, mode, status, started_at)
		VALUES (?, ?, ?, 'running', CURRENT_TIMESTAMP)
	`, id, pair, mode)

	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	return nil
}

// FinishSyncRun records the outcome of a sync pass.
func FinishSyncRun(db *sql.DB, id, status string, created, updated, deleted int, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		UPDATE sync_runs SET
			status = ?,
			created_count = ?,
			updated_count = ?,
			deleted_count = ?,
			error_message = ?,
			finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, created, updated, deleted, errorMsgVal, id)

	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}

	return nil
}

// RecentSyncRuns returns the most recent runs for a pair, newest first.
func RecentSyncRuns(db *sql.DB, pair string, limit int) ([]SyncRun, error) {
	rows, err := db.Query(`
		SELECT id, pair, mode, created_count, updated_count, deleted_count, status, error_message, started_at, finished_at
		FROM sync_runs
		WHERE pair = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, pair, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var errorMessage sql.NullString
		var finishedAt sql.NullTime

		err := rows.Scan(
			&run.ID,
			&run.Pair,
			&run.Mode,
			&run.CreatedCount,
			&run.UpdatedCount,
			&run.DeletedCount,
			&run.Status,
			&errorMessage,
			&run.StartedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		if errorMessage.Valid {
			run.ErrorMessage = &errorMessage.String
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
