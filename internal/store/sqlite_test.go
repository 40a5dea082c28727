// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers schema creation, record upsert, lookup and deletion

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if store.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", store.Path(), dbPath)
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRecord(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecord() error = %v, want ErrNotFound", err)
	}
}

func TestPutRecord_CreatesAndReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutRecord(ctx, "settings", `{"a":1}`); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}

	got, err := store.GetRecord(ctx, "settings")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("GetRecord() = %q, want %q", got, `{"a":1}`)
	}

	if err := store.PutRecord(ctx, "settings", `{"a":2}`); err != nil {
		t.Fatalf("PutRecord (replace) failed: %v", err)
	}

	got, err = store.GetRecord(ctx, "settings")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got != `{"a":2}` {
		t.Errorf("GetRecord() after replace = %q, want %q", got, `{"a":2}`)
	}
}

func TestGetRecordMeta(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	if err := store.PutRecord(ctx, "settings", "value"); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}

	rec, err := store.GetRecordMeta(ctx, "settings")
	if err != nil {
		t.Fatalf("GetRecordMeta failed: %v", err)
	}
	if rec.Name != "settings" || rec.Value != "value" {
		t.Errorf("GetRecordMeta() = %+v", rec)
	}
	if rec.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v, want after %v", rec.UpdatedAt, before)
	}

	if _, err := store.GetRecordMeta(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecordMeta(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutRecord(ctx, "settings", "value"); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}
	if err := store.DeleteRecord(ctx, "settings"); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	if _, err := store.GetRecord(ctx, "settings"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecord() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is not an error
	if err := store.DeleteRecord(ctx, "settings"); err != nil {
		t.Errorf("DeleteRecord (missing) error = %v, want nil", err)
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := first.PutRecord(ctx, "settings", "persisted"); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore (reopen) failed: %v", err)
	}
	defer second.Close()

	got, err := second.GetRecord(ctx, "settings")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got != "persisted" {
		t.Errorf("GetRecord() = %q, want %q", got, "persisted")
	}
}

// newTestStore creates a SQLite store in a temporary directory.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
