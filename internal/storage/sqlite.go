package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the history database at path and
// ensures required tables exist. The path must be on a local filesystem.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := RequireLocal(path); err != nil {
		return nil, fmt.Errorf("history database: %w (set state.path or --history-db)", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// CLI invocations may overlap with a running server; one writer at a time.
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	} {
		if _, err := db.ExecContext(pctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bundle_history (
  id            TEXT PRIMARY KEY,
  session_id    TEXT NOT NULL,
  batch_id      TEXT NOT NULL,
  job_id        INTEGER NOT NULL,
  workflow_name TEXT NOT NULL,
  bundle_name   TEXT NOT NULL,
  file_name     TEXT NOT NULL,
  mode          TEXT NOT NULL,
  digest        TEXT NOT NULL,
  content       TEXT NOT NULL,
  saved_path    TEXT,
  save_error    TEXT,
  generated_at  TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS bundle_history_generated_at_idx ON bundle_history(generated_at);`,
		`CREATE INDEX IF NOT EXISTS bundle_history_job_mode_idx ON bundle_history(job_id, mode);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
