package emit

import (
	"context"
	"testing"
)

func TestBufferedEmitterGetHistory(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{ThreadID: "t1", Step: 0, NodeID: "a", Kind: KindNodeStart})
	b.Emit(Event{ThreadID: "t1", Step: 0, NodeID: "a", Kind: KindNodeEnd})
	b.Emit(Event{ThreadID: "t2", Step: 0, NodeID: "b", Kind: KindNodeStart})

	history := b.GetHistory("t1")
	if len(history) != 2 {
		t.Fatalf("expected 2 events for t1, got %d", len(history))
	}
	if len(b.GetHistory("t2")) != 1 {
		t.Fatalf("expected 1 event for t2")
	}
}

func TestBufferedEmitterFilter(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{ThreadID: "t1", Step: 0, NodeID: "a", Kind: KindNodeStart})
	b.Emit(Event{ThreadID: "t1", Step: 1, NodeID: "b", Kind: KindNodeEnd})

	filtered := b.GetHistoryWithFilter("t1", HistoryFilter{Kind: KindNodeEnd})
	if len(filtered) != 1 || filtered[0].NodeID != "b" {
		t.Fatalf("expected only the NodeEnd event, got %+v", filtered)
	}
}

func TestBufferedEmitterEmitBatchAndClear(t *testing.T) {
	b := NewBufferedEmitter()
	err := b.EmitBatch(context.Background(), []Event{
		{ThreadID: "t1", Kind: KindNodeStart},
		{ThreadID: "t1", Kind: KindNodeEnd},
	})
	if err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if len(b.GetHistory("t1")) != 2 {
		t.Fatalf("expected 2 batched events")
	}

	b.Clear("t1")
	if len(b.GetHistory("t1")) != 0 {
		t.Fatalf("expected Clear to remove t1's history")
	}
}

func TestBufferedEmitterSatisfiesEmitter(t *testing.T) {
	var _ Emitter = NewBufferedEmitter()
}
