// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation for mappings, sync state, runs, and locks
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS event_mappings (
	pair TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (pair, source_id)
);

CREATE INDEX IF NOT EXISTS idx_event_mappings_target ON event_mappings(pair, target_id);

CREATE TABLE IF NOT EXISTS sync_state (
	pair TEXT PRIMARY KEY,
	sync_token TEXT,
	error_count INTEGER NOT NULL DEFAULT 0,
	last_sync_time DATETIME,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	pair TEXT NOT NULL,
	mode TEXT NOT NULL CHECK(mode IN ('full', 'incremental', 'delete-only')),
	created_count INTEGER NOT NULL DEFAULT 0,
	updated_count INTEGER NOT NULL DEFAULT 0,
	deleted_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL CHECK(status IN ('running', 'ok', 'error')),
	error_message TEXT,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_pair ON sync_runs(pair, started_at DESC);

CREATE TABLE IF NOT EXISTS sync_locks (
	name TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	expires_at DATETIME NOT NULL
);
`

// InitSchema creates all tables and indexes if they don't exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
