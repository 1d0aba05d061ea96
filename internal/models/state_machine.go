// Package models provides data structures and state management for backtest
// trades and positions.
package models

import (
	"fmt"
)

// TradeState represents the current lifecycle state of a trade.
type TradeState string

const (
	// StateTriggered means the signal fired and the trade is waiting out the
	// two-candle confirmation delay.
	StateTriggered TradeState = "triggered"
	// StateEntered means the confirmation delay elapsed and option legs are
	// being constructed at the entry candle's close.
	StateEntered TradeState = "entered"
	// StateOpen means legs are on and the trade is monitored for exits.
	StateOpen TradeState = "open"
	// StateClosed is terminal: the trade settled as win, loss or expired.
	StateClosed TradeState = "closed"
)

// StateTransition defines one valid lifecycle transition.
type StateTransition struct {
	From        TradeState
	To          TradeState
	Condition   string
	Description string
}

// ValidTransitions enumerates the trade lifecycle.
var ValidTransitions = []StateTransition{
	{StateTriggered, StateEntered, "confirmation_elapsed", "Second candle after trigger closed"},
	{StateTriggered, StateClosed, "pricing_failed", "Leg construction aborted before entry"},
	{StateEntered, StateOpen, "positions_opened", "Main (and hedge) legs constructed"},
	{StateEntered, StateClosed, "pricing_failed", "Leg construction aborted at entry"},
	{StateOpen, StateClosed, "stop_loss", "Index crossed the stop-loss level"},
	{StateOpen, StateClosed, "expiry", "Settled at weekly expiry"},
	{StateOpen, StateClosed, "forced_close", "End of simulation window"},
}

// StateMachine manages trade lifecycle transitions.
type StateMachine struct {
	currentState    TradeState
	previousState   TradeState
	transitionCount map[TradeState]int
}

// NewStateMachine creates a state machine at the start of the lifecycle.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState:    StateTriggered,
		previousState:   StateTriggered,
		transitionCount: make(map[TradeState]int),
	}
}

// NewStateMachineFromState rebuilds a state machine from a persisted state.
func NewStateMachineFromState(state TradeState) *StateMachine {
	sm := NewStateMachine()
	if state != "" {
		sm.currentState = state
		sm.previousState = state
	}
	return sm
}

// GetCurrentState returns the current state.
func (sm *StateMachine) GetCurrentState() TradeState {
	return sm.currentState
}

// GetPreviousState returns the previous state.
func (sm *StateMachine) GetPreviousState() TradeState {
	return sm.previousState
}

// IsValidTransition checks if a transition is valid from the current state.
func (sm *StateMachine) IsValidTransition(to TradeState, condition string) error {
	for _, transition := range ValidTransitions {
		if sm.matchesTransition(transition, to, condition) {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s with condition '%s'",
		sm.currentState, to, condition)
}

func (sm *StateMachine) matchesTransition(transition StateTransition, to TradeState, condition string) bool {
	if transition.From != sm.currentState || transition.To != to {
		return false
	}
	return transition.Condition == condition
}

// Transition moves to a new state.
func (sm *StateMachine) Transition(to TradeState, condition string) error {
	if err := sm.IsValidTransition(to, condition); err != nil {
		return err
	}
	sm.previousState = sm.currentState
	sm.currentState = to
	sm.transitionCount[to]++
	return nil
}

// GetTransitionCount returns how many times the machine entered a state.
func (sm *StateMachine) GetTransitionCount(state TradeState) int {
	return sm.transitionCount[state]
}

// IsTerminal reports whether the lifecycle is finished. Closed trades are
// immutable: no transition leaves StateClosed.
func (sm *StateMachine) IsTerminal() bool {
	return sm.currentState == StateClosed
}

// GetStateDescription returns a human-readable description of the current state.
func (sm *StateMachine) GetStateDescription() string {
	switch sm.currentState {
	case StateTriggered:
		return "Signal fired, waiting out two-candle confirmation"
	case StateEntered:
		return "Confirmation elapsed, constructing option legs"
	case StateOpen:
		return "Legs on, monitoring stop-loss and expiry"
	case StateClosed:
		return "Trade settled"
	default:
		return "Unknown state"
	}
}
