package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/arklim/homescout-onboarding/internal/repository"
)

func openTestStore(t *testing.T) *KeyValueStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "state", "onboarding.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestKeyValueStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "navigation_state"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	if err := store.Set(ctx, "navigation_state", []byte("one")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Set(ctx, "navigation_state", []byte("two")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, err := store.Get(ctx, "navigation_state")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(value) != "two" {
		t.Fatalf("expected overwritten value two, got %s", value)
	}

	var rows int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single row, got %d", rows)
	}

	if err := store.Delete(ctx, "navigation_state"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, "navigation_state"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKeyValueStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarding.db")
	ctx := context.Background()

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := first.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	if second.Path() != path {
		t.Fatalf("expected store path %q, got %q", path, second.Path())
	}
	defer second.Close()

	value, err := second.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(value) != "v" {
		t.Fatalf("expected v, got %s", value)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
