package emit

import (
	"context"
	"testing"
)

func TestNullEmitterSatisfiesEmitter(t *testing.T) {
	var e Emitter = NewNullEmitter()
	e.Emit(Event{ThreadID: "t1", Kind: KindNodeStart})
	if err := e.EmitBatch(context.Background(), []Event{{ThreadID: "t1"}}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
