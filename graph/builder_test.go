package graph

import (
	"context"
	"testing"
)

func noopNode(_ context.Context, state State, _ *RunnableConfig) (State, error) {
	return State{}, nil
}

func TestCompileRejectsMissingEntryPoint(t *testing.T) {
	_, err := NewGraph().
		AddNode("only", noopNode).
		AddFinishPoint("only").
		Compile()
	if err == nil {
		t.Fatal("expected an error for a missing entry point")
	}
}

func TestCompileRejectsUnreachableFinish(t *testing.T) {
	_, err := NewGraph().
		AddNode("a", noopNode).
		AddNode("b", noopNode).
		SetEntryPoint("a").
		AddEdge("a", "a"). // self-loop, never reaches a finish point
		AddFinishPoint("b").
		Compile()
	if err == nil {
		t.Fatal("expected an error for a graph with no path to a finish point")
	}
}

func TestCompileRejectsReservedNodeName(t *testing.T) {
	b := NewGraph().AddNode(Start, noopNode)
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected an error for a node named after a reserved sentinel")
	}
}

func TestCompileRejectsDuplicateNode(t *testing.T) {
	b := NewGraph().
		AddNode("a", noopNode).
		AddNode("a", noopNode).
		SetEntryPoint("a").
		AddFinishPoint("a")
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected an error for a duplicate node id")
	}
}

func TestCompileRejectsUnknownEdgeTarget(t *testing.T) {
	b := NewGraph().
		AddNode("a", noopNode).
		SetEntryPoint("a").
		AddEdge("a", "ghost")
	if _, err := b.Compile(); err == nil {
		t.Fatal("expected an error for an edge to an unknown node")
	}
}

func TestCompileSucceedsForLinearGraph(t *testing.T) {
	compiled, err := NewGraph().
		AddLastValueChannel("count", 0).
		AddNode("step", noopNode).
		SetEntryPoint("step").
		AddFinishPoint("step").
		Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if compiled.entryPoint != "step" {
		t.Fatalf("expected entry point 'step', got %q", compiled.entryPoint)
	}
}
