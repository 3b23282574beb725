package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cv-optimizer/internal/shared/storage/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "ns/johny_cv_draft", "draft one"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "ns/johny_cv_draft", "draft two"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := s.Get(ctx, "ns/johny_cv_draft")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "draft two" {
		t.Errorf("expected overwritten value, got %q", got)
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected kv.ErrNotFound, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Remove(ctx, "k"); err != nil {
			t.Fatalf("Remove #%d: %v", i+1, err)
		}
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expected kv.ErrNotFound after remove, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(context.Background(), "k", "persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(context.Background(), "k")
	if err != nil || got != "persisted" {
		t.Fatalf("expected persisted value, got %q (%v)", got, err)
	}
}
