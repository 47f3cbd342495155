// Package state persists generated bundle history across invocations.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/bundle"
)

// DefaultMaxContentBytes caps a stored artifact.
const DefaultMaxContentBytes = 1 << 20

var ErrHistoryNotFound = errors.New("history entry not found")

// Entry is one persisted document.
type Entry struct {
	ID           string      `json:"id"`
	SessionID    string      `json:"session_id"`
	BatchID      string      `json:"batch_id"`
	JobID        int64       `json:"job_id"`
	WorkflowName string      `json:"workflow_name"`
	BundleName   string      `json:"bundle_name"`
	FileName     string      `json:"file_name"`
	Mode         bundle.Mode `json:"mode"`
	Digest       string      `json:"digest"`
	Content      string      `json:"content,omitempty"`
	SavedPath    string      `json:"saved_path,omitempty"`
	SaveError    string      `json:"save_error,omitempty"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// Query narrows List. Zero values mean no filter; Limit defaults to 50.
type Query struct {
	JobID int64
	Limit int
}

// HistoryStore implements batch.HistoryRecorder on SQLite.
type HistoryStore struct {
	db              *sql.DB
	maxContentBytes int
}

var _ batch.HistoryRecorder = (*HistoryStore)(nil)

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{
		db:              db,
		maxContentBytes: DefaultMaxContentBytes,
	}
}

// Record stores g. Re-recording the same id replaces the save outcome only.
func (s *HistoryStore) Record(ctx context.Context, sessionID string, g batch.Generated) error {
	if g.ID == "" {
		return fmt.Errorf("history entry id is empty")
	}
	if len(g.Content) > s.maxContentBytes {
		return fmt.Errorf("bundle %s exceeds max stored size (%d bytes)", g.BundleName, s.maxContentBytes)
	}

	var savedPath, saveError sql.NullString
	if g.Save != nil {
		savedPath = sql.NullString{String: g.Save.Path, Valid: g.Save.Saved}
		saveError = sql.NullString{String: g.Save.Error, Valid: g.Save.Error != ""}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO bundle_history(
  id, session_id, batch_id, job_id, workflow_name, bundle_name, file_name,
  mode, digest, content, saved_path, save_error, generated_at
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  saved_path = excluded.saved_path,
  save_error = excluded.save_error;
`,
		g.ID, sessionID, g.BatchID, g.JobID, g.WorkflowName, g.BundleName, g.FileName,
		string(g.Mode), g.Digest, g.Content, savedPath, saveError,
		g.GeneratedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List returns entries newest first, without their content.
func (s *HistoryStore) List(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, session_id, batch_id, job_id, workflow_name, bundle_name, file_name,
       mode, digest, '', saved_path, save_error, generated_at
FROM bundle_history`
	args := []any{}
	if q.JobID != 0 {
		query += " WHERE job_id = ?"
		args = append(args, q.JobID)
	}
	query += " ORDER BY generated_at DESC, rowid DESC LIMIT ?;"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// Get returns one entry with its content.
func (s *HistoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, session_id, batch_id, job_id, workflow_name, bundle_name, file_name,
       mode, digest, content, saved_path, save_error, generated_at
FROM bundle_history WHERE id = ?;`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHistoryNotFound
	}
	return e, err
}

// Prune deletes entries generated before cutoff and reports how many went.
func (s *HistoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bundle_history WHERE julianday(generated_at) < julianday(?);`,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(r scanner) (*Entry, error) {
	var (
		e                    Entry
		mode, generatedAt    string
		savedPath, saveError sql.NullString
	)
	err := r.Scan(&e.ID, &e.SessionID, &e.BatchID, &e.JobID, &e.WorkflowName, &e.BundleName,
		&e.FileName, &mode, &e.Digest, &e.Content, &savedPath, &saveError, &generatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan history entry: %w", err)
	}
	e.Mode = bundle.Mode(mode)
	e.SavedPath = savedPath.String
	e.SaveError = saveError.String
	e.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse generated_at %q: %w", generatedAt, err)
	}
	return &e, nil
}
