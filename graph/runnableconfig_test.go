package graph

import "testing"

func TestNewRunnableConfigDefaults(t *testing.T) {
	cfg := NewRunnableConfig()
	if cfg.RecursionLimit != defaultRecursionLimit {
		t.Fatalf("expected default recursion limit %d, got %d", defaultRecursionLimit, cfg.RecursionLimit)
	}
}

func TestRunnableConfigCloneIsIndependent(t *testing.T) {
	original := NewRunnableConfig(WithTags("a", "b"), WithMetadata(map[string]any{"k": "v"}))
	clone := original.clone()

	clone.Tags[0] = "mutated"
	clone.Metadata["k"] = "mutated"

	if original.Tags[0] != "a" {
		t.Fatalf("expected original tags untouched, got %v", original.Tags)
	}
	if original.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched, got %v", original.Metadata)
	}
}

func TestForSubGraphDecrementsRecursionLimitAndClearsThreadIdentity(t *testing.T) {
	original := NewRunnableConfig(
		WithRecursionLimit(10),
		WithThreadID("thread-1"),
		WithCheckpointID("cp-1"),
		WithResumeValue("resume"),
	)

	sub := original.forSubGraph()

	if sub.RecursionLimit != 9 {
		t.Fatalf("expected decremented recursion limit 9, got %d", sub.RecursionLimit)
	}
	if sub.ThreadID != "" || sub.CheckpointID != "" || sub.ResumeValue != nil {
		t.Fatalf("expected thread identity cleared for the nested invocation, got %+v", sub)
	}
	if original.ThreadID != "thread-1" {
		t.Fatalf("expected the original config's ThreadID untouched, got %q", original.ThreadID)
	}
}

func TestForSubGraphSaturatesAtZero(t *testing.T) {
	original := NewRunnableConfig(WithRecursionLimit(0))
	sub := original.forSubGraph()
	if sub.RecursionLimit != 0 {
		t.Fatalf("expected saturating decrement to stay at 0, got %d", sub.RecursionLimit)
	}
}
