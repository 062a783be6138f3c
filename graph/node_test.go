package graph

import "testing"

func TestClassifyPlainDelta(t *testing.T) {
	kind, payload, err := classify(State{"answer": 42})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if kind != directiveDelta {
		t.Fatalf("expected directiveDelta, got %v", kind)
	}
	if payload.(State)["answer"] != 42 {
		t.Fatalf("expected payload to be the original delta, got %+v", payload)
	}
}

func TestClassifyInterrupt(t *testing.T) {
	kind, payload, err := classify(InterruptOutput("waiting for approval"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if kind != directiveInterrupt {
		t.Fatalf("expected directiveInterrupt, got %v", kind)
	}
	if payload != "waiting for approval" {
		t.Fatalf("unexpected interrupt payload: %v", payload)
	}
}

func TestClassifyCommand(t *testing.T) {
	kind, payload, err := classify(CommandOutput("retry", State{"attempts": 1}))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if kind != directiveCommand {
		t.Fatalf("expected directiveCommand, got %v", kind)
	}
	cmd := payload.(commandDirective)
	if cmd.Goto != "retry" || cmd.Update["attempts"] != 1 {
		t.Fatalf("unexpected command payload: %+v", cmd)
	}
}

func TestClassifySend(t *testing.T) {
	kind, payload, err := classify(SendOutput(
		SendTarget{Node: "worker_a", Arg: State{"shard": 0}},
		SendTarget{Node: "worker_b", Arg: State{"shard": 1}},
	))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if kind != directiveSend {
		t.Fatalf("expected directiveSend, got %v", kind)
	}
	targets := payload.([]SendTarget)
	if len(targets) != 2 || targets[0].Node != "worker_a" || targets[1].Node != "worker_b" {
		t.Fatalf("unexpected send targets: %+v", targets)
	}
}

func TestClassifyRejectsMultipleDirectives(t *testing.T) {
	out := InterruptOutput("x")
	out[markerCommand] = commandDirective{Goto: "y"}

	if _, _, err := classify(out); err != errMultipleDirectives {
		t.Fatalf("expected errMultipleDirectives, got %v", err)
	}
}
