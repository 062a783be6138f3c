package graph

import "testing"

func TestStateOverlay(t *testing.T) {
	base := State{"a": 1, "b": 2}
	overlaid := base.Overlay(State{"b": 3, "c": 4})

	if overlaid["a"] != 1 || overlaid["b"] != 3 || overlaid["c"] != 4 {
		t.Fatalf("unexpected overlay result: %+v", overlaid)
	}
	if base["b"] != 2 {
		t.Fatalf("Overlay mutated the receiver: %+v", base)
	}
}

func TestChannelTableLastValue(t *testing.T) {
	table := newChannelTable(map[string]ChannelSpec{
		"x": {Name: "x", Kind: LastValue, Default: 0},
	})

	if _, err := table.update(State{"x": 1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := table.update(State{"x": 2}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := table.materialize()["x"]; got != 2 {
		t.Fatalf("expected last-value overwrite, got %v", got)
	}
}

func TestChannelTableAppend(t *testing.T) {
	table := newChannelTable(map[string]ChannelSpec{
		"log": {Name: "log", Kind: Append, Default: []any{}},
	})

	if _, err := table.update(State{"log": []any{"a"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := table.update(State{"log": []any{"b", "c"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := table.materialize()["log"].([]any)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected appended sequence, got %v", got)
	}
}

func TestChannelTableAppendRejectsNonSequence(t *testing.T) {
	table := newChannelTable(map[string]ChannelSpec{
		"log": {Name: "log", Kind: Append, Default: []any{}},
	})

	badChannel, err := table.update(State{"log": "not a slice"})
	if err == nil {
		t.Fatal("expected an error writing a non-sequence to an append channel")
	}
	if badChannel != "log" {
		t.Fatalf("expected badChannel = %q, got %q", "log", badChannel)
	}
}

func TestChannelTableRestore(t *testing.T) {
	specs := map[string]ChannelSpec{
		"x": {Name: "x", Kind: LastValue, Default: "default"},
		"y": {Name: "y", Kind: Append, Default: []any{}},
	}
	table := newChannelTable(specs)
	table.restore(State{"x": "restored"})

	view := table.materialize()
	if view["x"] != "restored" {
		t.Fatalf("expected restored value, got %v", view["x"])
	}
	if seq, ok := view["y"].([]any); !ok || len(seq) != 0 {
		t.Fatalf("expected default for channel absent from snapshot, got %v", view["y"])
	}
}

func TestChannelTableSnapshotRoundTrip(t *testing.T) {
	table := newChannelTable(map[string]ChannelSpec{
		"x": {Name: "x", Kind: LastValue, Default: 0},
	})
	if _, err := table.update(State{"x": 42}); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, err := table.snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored := newChannelTable(map[string]ChannelSpec{"x": {Name: "x", Kind: LastValue, Default: 0}})
	restored.restore(snap)

	// JSON round-trips an int through float64.
	if got := restored.materialize()["x"]; got != float64(42) {
		t.Fatalf("expected 42 after snapshot round-trip, got %v (%T)", got, got)
	}
}
