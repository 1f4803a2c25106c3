package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

var sqliteSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		cutoff TEXT NOT NULL,
		window_from TEXT,
		window_to TEXT,
		input_digest TEXT NOT NULL,
		total INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS run_clients (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		client TEXT NOT NULL,
		total INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		target_rate REAL,
		meets_target INTEGER NOT NULL,
		PRIMARY KEY (run_id, client)
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_runs_created_at
	ON runs(created_at);
	`,
}

var postgresSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		cutoff TIMESTAMPTZ NOT NULL,
		window_from TIMESTAMPTZ,
		window_to TIMESTAMPTZ,
		input_digest TEXT NOT NULL,
		total INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS run_clients (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		client TEXT NOT NULL,
		total INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		target_rate DOUBLE PRECISION,
		meets_target BOOLEAN NOT NULL,
		PRIMARY KEY (run_id, client)
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_runs_created_at
	ON runs(created_at DESC);
	`,
}

// InitSchema creates the run tables in a SQLite database.
func InitSchema(db *sql.DB) error {
	return initSchema(db, sqliteSchema)
}

// InitPostgresSchema creates the run tables in the shared postgres database.
func InitPostgresSchema(db *sql.DB) error {
	return initSchema(db, postgresSchema)
}

func initSchema(db *sql.DB, statements []string) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
