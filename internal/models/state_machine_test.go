package models

import (
	"testing"
)

func TestStateMachineHappyPath(t *testing.T) {
	sm := NewStateMachine()

	if sm.GetCurrentState() != StateTriggered {
		t.Fatalf("expected initial state %s, got %s", StateTriggered, sm.GetCurrentState())
	}

	steps := []struct {
		to        TradeState
		condition string
	}{
		{StateEntered, "confirmation_elapsed"},
		{StateOpen, "positions_opened"},
		{StateClosed, "stop_loss"},
	}
	for _, step := range steps {
		if err := sm.Transition(step.to, step.condition); err != nil {
			t.Fatalf("transition to %s failed: %v", step.to, err)
		}
	}

	if !sm.IsTerminal() {
		t.Error("closed machine should be terminal")
	}
	if sm.GetPreviousState() != StateOpen {
		t.Errorf("expected previous state %s, got %s", StateOpen, sm.GetPreviousState())
	}
	if got := sm.GetTransitionCount(StateClosed); got != 1 {
		t.Errorf("expected 1 transition into closed, got %d", got)
	}
}

func TestStateMachineRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      TradeState
		to        TradeState
		condition string
	}{
		{"skip entered", StateTriggered, StateOpen, "positions_opened"},
		{"wrong condition", StateTriggered, StateEntered, "stop_loss"},
		{"reopen closed", StateClosed, StateOpen, "positions_opened"},
		{"backwards", StateOpen, StateTriggered, "confirmation_elapsed"},
		{"unknown condition", StateOpen, StateClosed, "manual_exit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachineFromState(tt.from)
			if err := sm.Transition(tt.to, tt.condition); err == nil {
				t.Errorf("transition %s -> %s (%s) should be rejected", tt.from, tt.to, tt.condition)
			}
			if sm.GetCurrentState() != tt.from {
				t.Errorf("rejected transition must not change state, got %s", sm.GetCurrentState())
			}
		})
	}
}

func TestStateMachineAbortPaths(t *testing.T) {
	for _, from := range []TradeState{StateTriggered, StateEntered} {
		sm := NewStateMachineFromState(from)
		if err := sm.Transition(StateClosed, "pricing_failed"); err != nil {
			t.Errorf("abort from %s should be valid: %v", from, err)
		}
	}
}

func TestStateMachineExitConditions(t *testing.T) {
	for _, condition := range []string{"stop_loss", "expiry", "forced_close"} {
		sm := NewStateMachineFromState(StateOpen)
		if err := sm.Transition(StateClosed, condition); err != nil {
			t.Errorf("close with %q should be valid: %v", condition, err)
		}
	}
}
