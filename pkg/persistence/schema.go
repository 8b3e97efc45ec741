package persistence

import (
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion defines the current schema version for migration
// support.
const CurrentSchemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	query        TEXT NOT NULL,
	status       TEXT NOT NULL,
	answer       TEXT NOT NULL DEFAULT '',
	step_count   INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	task_id          TEXT NOT NULL,
	sequence         INTEGER NOT NULL,
	raw_output       TEXT NOT NULL,
	observation_kind TEXT NOT NULL DEFAULT '',
	observation      TEXT NOT NULL DEFAULT '',
	duration_ms      INTEGER NOT NULL DEFAULT 0,
	started_at       TIMESTAMP NOT NULL,
	PRIMARY KEY (task_id, sequence),
	FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// initializeSchema ensures the schema exists and is at the current
// version. Safe to call on every open.
func initializeSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == CurrentSchemaVersion {
		return nil
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(
		"INSERT OR REPLACE INTO schema_version (version) VALUES (?)",
		CurrentSchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	return nil
}

// schemaVersion returns the recorded schema version, or 0 for an empty
// database.
func schemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
