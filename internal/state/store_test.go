package state

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattjoyce/dabops/internal/batch"
	"github.com/mattjoyce/dabops/internal/bundle"
	"github.com/mattjoyce/dabops/internal/storage"
)

func openStore(t *testing.T) *HistoryStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := storage.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryStore(db)
}

func generated(id string, jobID int64, at time.Time) batch.Generated {
	return batch.Generated{
		ID:           id,
		BatchID:      "batch-1",
		JobID:        jobID,
		WorkflowName: "Nightly Sync",
		BundleName:   "nightly_sync_bundle",
		FileName:     "nightly_sync_bundle.yml",
		Mode:         bundle.ModeFull,
		Content:      "bundle:\n  name: nightly_sync_bundle\n",
		Digest:       "abc",
		GeneratedAt:  at,
	}
}

func TestHistoryStoreRecordAndGet(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	g := generated("g1", 42, at)
	g.Save = &batch.SaveResult{Path: "/Workspace/Users/me/b.yml", Saved: true}
	if err := s.Record(ctx, "session-1", g); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SessionID != "session-1" || got.JobID != 42 || got.Mode != bundle.ModeFull {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.Content != g.Content {
		t.Fatalf("content = %q, want %q", got.Content, g.Content)
	}
	if got.SavedPath != "/Workspace/Users/me/b.yml" || got.SaveError != "" {
		t.Fatalf("unexpected save outcome: %+v", got)
	}
	if !got.GeneratedAt.Equal(at) {
		t.Fatalf("generated_at = %v, want %v", got.GeneratedAt, at)
	}
}

func TestHistoryStoreGetMissing(t *testing.T) {
	t.Parallel()
	s := openStore(t)

	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrHistoryNotFound) {
		t.Fatalf("expected ErrHistoryNotFound, got %v", err)
	}
}

func TestHistoryStoreRecordUpdatesSaveOutcome(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()

	g := generated("g1", 1, time.Now())
	if err := s.Record(ctx, "s", g); err != nil {
		t.Fatalf("Record (1): %v", err)
	}
	g.Save = &batch.SaveResult{Path: "/Workspace/x.yml", Error: "Permission denied."}
	if err := s.Record(ctx, "s", g); err != nil {
		t.Fatalf("Record (2): %v", err)
	}
	got, err := s.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SavedPath != "" || got.SaveError != "Permission denied." {
		t.Fatalf("unexpected save outcome: %+v", got)
	}
}

func TestHistoryStoreListNewestFirst(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		jobID := int64(1)
		if id == "b" {
			jobID = 2
		}
		if err := s.Record(ctx, "s", generated(id, jobID, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	all, err := s.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if all[0].Content != "" {
		t.Fatalf("List should not return content")
	}

	limited, err := s.List(ctx, Query{Limit: 1})
	if err != nil {
		t.Fatalf("List limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Fatalf("unexpected limited result: %+v", limited)
	}

	byJob, err := s.List(ctx, Query{JobID: 2})
	if err != nil {
		t.Fatalf("List job: %v", err)
	}
	if len(byJob) != 1 || byJob[0].ID != "b" {
		t.Fatalf("unexpected job filter result: %+v", byJob)
	}
}

func TestHistoryStoreRejectsOversizedContent(t *testing.T) {
	t.Parallel()
	s := openStore(t)

	g := generated("big", 1, time.Now())
	g.Content = strings.Repeat("a", DefaultMaxContentBytes+1)
	if err := s.Record(context.Background(), "s", g); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestHistoryStorePrune(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// A fractional-second timestamp sorts differently as text than as time.
	for id, at := range map[string]time.Time{
		"old":      base,
		"boundary": base.Add(time.Hour + 500*time.Millisecond),
		"new":      base.Add(2 * time.Hour),
	} {
		if err := s.Record(ctx, "s", generated(id, 1, at)); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	removed, err := s.Prune(ctx, base.Add(time.Hour+time.Second))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Prune removed %d, want 2", removed)
	}

	left, err := s.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(left) != 1 || left[0].ID != "new" {
		t.Fatalf("unexpected entries after prune: %+v", left)
	}
}
