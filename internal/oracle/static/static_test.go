package static

import (
	"context"
	"testing"

	"AgentCoin-Sim/internal/oracle"
)

func TestDecideAlwaysWaits(t *testing.T) {
	orc := New("")

	decision, err := orc.Decide(context.Background(), oracle.Snapshot{Goal: "anything"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action.Kind != oracle.ActionWait {
		t.Fatalf("expected WAIT, got %+v", decision.Action)
	}
	if decision.Reason != "API Key not configured. Falling back to default action." {
		t.Fatalf("unexpected reason: %q", decision.Reason)
	}
}

func TestDecideCustomReason(t *testing.T) {
	orc := New("manual override")
	decision, err := orc.Decide(context.Background(), oracle.Snapshot{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Reason != "manual override" {
		t.Fatalf("unexpected reason: %q", decision.Reason)
	}
}

func TestDecideHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New("").Decide(ctx, oracle.Snapshot{}); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
