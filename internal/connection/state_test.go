package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_StartsConnecting(t *testing.T) {
	m := NewStateMachine()
	assert.Equal(t, StateConnecting, m.State())
}

func TestStateMachine_Transitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		ok   bool
	}{
		{"open then closed", []State{StateOpen, StateClosed}, true},
		{"establishment failure", []State{StateClosed}, true},
		{"disconnect while connecting", []State{StateClosing, StateClosed}, true},
		{"disconnect while open", []State{StateOpen, StateClosing, StateClosed}, true},
		{"reopen from closed", []State{StateOpen, StateClosed, StateOpen}, false},
		{"closing to open", []State{StateClosing, StateOpen}, false},
		{"closed to closing", []State{StateClosed, StateClosing}, false},
		{"open to connecting", []State{StateOpen, StateConnecting}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStateMachine()
			var err error
			for _, to := range tt.path {
				if _, err = m.Transition(to); err != nil {
					break
				}
			}
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, tt.path[len(tt.path)-1], m.State())
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestStateMachine_TransitionReturnsPrevious(t *testing.T) {
	m := NewStateMachine()

	from, err := m.Transition(StateOpen)
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, from)

	from, err = m.Transition(StateClosed)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, from)
}

func TestStateMachine_FailedTransitionKeepsState(t *testing.T) {
	m := NewStateMachine()
	_, err := m.Transition(StateClosed)
	require.NoError(t, err)

	_, err = m.Transition(StateClosed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "closed -> closed")
	assert.Equal(t, StateClosed, m.State())
}

func TestStateMachine_CanTransition(t *testing.T) {
	m := NewStateMachine()
	assert.True(t, m.CanTransition(StateOpen))
	assert.True(t, m.CanTransition(StateClosing))
	assert.False(t, m.CanTransition(StateConnecting))

	_, _ = m.Transition(StateClosed)
	for _, s := range []State{StateConnecting, StateOpen, StateClosing, StateClosed} {
		assert.False(t, m.CanTransition(s), "closed is terminal, got %s allowed", s)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
