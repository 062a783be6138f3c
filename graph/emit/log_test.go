package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)
	e.Emit(Event{ThreadID: "t1", Step: 2, NodeID: "a", Kind: KindNodeEnd})

	out := buf.String()
	if !strings.Contains(out, "threadID=t1") || !strings.Contains(out, "nodeID=a") {
		t.Fatalf("unexpected text output: %q", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)
	e.Emit(Event{ThreadID: "t1", Step: 1, NodeID: "a", Kind: KindNodeStart})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON line, got %q: %v", buf.String(), err)
	}
	if decoded["threadID"] != "t1" || decoded["kind"] != KindNodeStart {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestLogEmitterEmitBatch(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)
	err := e.EmitBatch(context.Background(), []Event{
		{ThreadID: "t1", Kind: KindNodeStart},
		{ThreadID: "t1", Kind: KindNodeEnd},
	})
	if err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
}
