package store

import (
	"context"
	"testing"
)

func TestSQLiteStoreConformance(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	exerciseCheckpointStore(t, s)
}

func TestSQLiteStorePingAndPath(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if s.Path() != ":memory:" {
		t.Errorf("Path() = %q, want %q", s.Path(), ":memory:")
	}
}

func TestSQLiteStoreClosedRejectsOperations(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error from Ping on closed store")
	}
}
