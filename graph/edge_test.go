package graph

import "testing"

func TestConditionalEdgeResolveWithPathMap(t *testing.T) {
	e := NewConditionalEdge("classify", func(s State) string {
		return s["label"].(string)
	}, map[string]string{"spam": "quarantine", "ham": "deliver"})

	if got := e.Resolve(State{"label": "spam"}); got != "quarantine" {
		t.Fatalf("expected quarantine, got %q", got)
	}
}

func TestConditionalEdgeResolveFallsBackToKey(t *testing.T) {
	e := NewConditionalEdge("classify", func(s State) string {
		return s["label"].(string)
	}, map[string]string{"spam": "quarantine"})

	if got := e.Resolve(State{"label": "ham"}); got != "ham" {
		t.Fatalf("expected fallback to the router's own key, got %q", got)
	}
}

func TestConditionalEdgeResolveNilPathMap(t *testing.T) {
	e := NewConditionalEdge("classify", func(s State) string {
		return "direct_target"
	}, nil)

	if got := e.Resolve(State{}); got != "direct_target" {
		t.Fatalf("expected direct_target, got %q", got)
	}
}

func TestConditionalFanOutEdgeDropsUnknownKeys(t *testing.T) {
	e := NewConditionalFanOutEdge("splitter", func(s State) []string {
		return []string{"a", "unknown", "b"}
	}, map[string]string{"a": "node_a", "b": "node_b"})

	got := e.Resolve(State{})
	if len(got) != 2 || got[0] != "node_a" || got[1] != "node_b" {
		t.Fatalf("expected unknown keys dropped, got %v", got)
	}
}
