package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/stategraph-go/graph"
)

// exerciseCheckpointStore runs a common conformance suite against any
// graph.CheckpointStore implementation.
func exerciseCheckpointStore(t *testing.T, s graph.CheckpointStore) {
	t.Helper()
	ctx := context.Background()

	cp1 := graph.Checkpoint{
		ID:            "cp-1",
		ThreadID:      "thread-a",
		Step:          0,
		ChannelValues: graph.State{"count": float64(1)},
		PendingNodes:  []string{"start"},
		Metadata:      graph.Metadata{Source: graph.SourceLoop, Step: 0},
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	cp2 := graph.Checkpoint{
		ID:            "cp-2",
		ThreadID:      "thread-a",
		ParentID:      "cp-1",
		Step:          1,
		ChannelValues: graph.State{"count": float64(2)},
		PendingNodes:  []string{"next"},
		Metadata:      graph.Metadata{Source: graph.SourceLoop, Step: 1},
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}

	if err := s.Put(ctx, cp1); err != nil {
		t.Fatalf("Put cp1: %v", err)
	}
	if err := s.Put(ctx, cp2); err != nil {
		t.Fatalf("Put cp2: %v", err)
	}

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(ctx, "thread-a", "cp-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ID != "cp-1" || got.ChannelValues["count"] != float64(1) {
			t.Errorf("unexpected checkpoint: %+v", got)
		}
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := s.Get(ctx, "thread-a", "nope")
		if !errors.Is(err, graph.ErrCheckpointNotFound) {
			t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
		}
	})

	t.Run("get latest", func(t *testing.T) {
		got, err := s.GetLatest(ctx, "thread-a")
		if err != nil {
			t.Fatalf("GetLatest: %v", err)
		}
		if got.ID != "cp-2" {
			t.Errorf("expected cp-2 as latest, got %s", got.ID)
		}
	})

	t.Run("list ordered by step", func(t *testing.T) {
		list, err := s.List(ctx, "thread-a")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 2 || list[0].ID != "cp-1" || list[1].ID != "cp-2" {
			t.Fatalf("unexpected ordering: %+v", list)
		}
	})

	t.Run("put is idempotent for same id", func(t *testing.T) {
		updated := cp1
		updated.PendingNodes = []string{"start", "extra"}
		if err := s.Put(ctx, updated); err != nil {
			t.Fatalf("Put update: %v", err)
		}
		got, err := s.Get(ctx, "thread-a", "cp-1")
		if err != nil {
			t.Fatalf("Get after update: %v", err)
		}
		if len(got.PendingNodes) != 2 {
			t.Errorf("expected updated pending nodes, got %+v", got.PendingNodes)
		}
		list, err := s.List(ctx, "thread-a")
		if err != nil {
			t.Fatalf("List after update: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("update should not grow the thread, got %d entries", len(list))
		}
	})

	t.Run("delete thread", func(t *testing.T) {
		if err := s.DeleteThread(ctx, "thread-a"); err != nil {
			t.Fatalf("DeleteThread: %v", err)
		}
		list, err := s.List(ctx, "thread-a")
		if err != nil {
			t.Fatalf("List after delete: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected empty thread after delete, got %d", len(list))
		}
		if _, err := s.GetLatest(ctx, "thread-a"); !errors.Is(err, graph.ErrCheckpointNotFound) {
			t.Errorf("expected ErrCheckpointNotFound after delete, got %v", err)
		}
	})

	t.Run("threads are isolated", func(t *testing.T) {
		other := cp1
		other.ThreadID = "thread-b"
		if err := s.Put(ctx, other); err != nil {
			t.Fatalf("Put thread-b: %v", err)
		}
		list, err := s.List(ctx, "thread-a")
		if err != nil {
			t.Fatalf("List thread-a: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("thread-a should remain empty, got %d", len(list))
		}
	})
}

func TestErrNotFoundAliasesGraphSentinel(t *testing.T) {
	if !errors.Is(ErrNotFound, graph.ErrCheckpointNotFound) {
		t.Fatal("store.ErrNotFound must be recognizable as graph.ErrCheckpointNotFound")
	}
}
