package connection

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a connection.
type State int

const (
	// StateConnecting means a channel is being established.
	StateConnecting State = iota

	// StateOpen means the channel is established and outbound traffic flows.
	StateOpen

	// StateClosing means a caller-initiated disconnect is tearing the channel down.
	StateClosing

	// StateClosed means the channel instance is gone.
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateChange describes a lifecycle transition.
type StateChange struct {
	From State
	To   State
}

// ErrInvalidTransition is returned for a transition the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State][]State{
	StateConnecting: {StateOpen, StateClosed, StateClosing},
	StateOpen:       {StateClosed, StateClosing},
	StateClosing:    {StateClosed},
	StateClosed:     nil, // terminal for the instance
}

// StateMachine tracks the lifecycle of a single channel instance. A new
// instance (and a new machine) is created for every reconnect.
type StateMachine struct {
	state State
}

// NewStateMachine returns a machine in StateConnecting.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateConnecting}
}

// State returns the current state.
func (m *StateMachine) State() State {
	return m.state
}

// Transition moves to the given state and returns the previous one.
func (m *StateMachine) Transition(to State) (State, error) {
	from := m.state
	for _, allowed := range transitions[from] {
		if allowed == to {
			m.state = to
			return from, nil
		}
	}
	return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// CanTransition reports whether the transition is allowed from the current state.
func (m *StateMachine) CanTransition(to State) bool {
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			return true
		}
	}
	return false
}
