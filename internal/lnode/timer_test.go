package lnode

import (
	"testing"

	"scenelogic/internal/ltypes"
)

func TestFreeRunningTimerHasNoInput(t *testing.T) {
	n := NewTimerNode(1, "clock", false)
	if _, ok := n.Props.Root(true); ok {
		t.Fatal("expected free-running timer to have no input root")
	}
	if err := EvaluateTimer(n, 1500); err != nil {
		t.Fatalf("EvaluateTimer: %v", err)
	}
	out, _ := n.Props.Root(false)
	v, _ := n.Props.GetAny(out)
	if v.L != 1500 {
		t.Fatalf("expected ticker_us=1500, got %v", v.L)
	}
}

func TestExternalTimerEchoesPendingInput(t *testing.T) {
	n := NewTimerNode(1, "clock", true)
	in, ok := n.Props.Root(true)
	if !ok {
		t.Fatal("expected external timer to have an input root")
	}
	if err := n.Props.Set(in, ltypes.Int64Value(42)); err != nil {
		t.Fatalf("set ticker_us: %v", err)
	}
	if err := EvaluateTimer(n, 999); err != nil {
		t.Fatalf("EvaluateTimer: %v", err)
	}
	out, _ := n.Props.Root(false)
	v, _ := n.Props.GetAny(out)
	if v.L != 42 {
		t.Fatalf("expected external ticker value 42 to be echoed, got %v", v.L)
	}
}

func TestTimerIsAlwaysDirty(t *testing.T) {
	n := NewTimerNode(1, "clock", false)
	if !IsTimerAlwaysDirty(n) {
		t.Fatal("expected TimerNode to report always-dirty")
	}
}
