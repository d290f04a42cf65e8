package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconnector_DefaultDelay(t *testing.T) {
	assert.Equal(t, DefaultReconnectDelay, NewReconnector(true, 0).Delay())
	assert.Equal(t, DefaultReconnectDelay, NewReconnector(true, -3).Delay())
	assert.Equal(t, 2, NewReconnector(true, 2).Delay())
}

func TestReconnector_CountdownFiresOnce(t *testing.T) {
	r := NewReconnector(true, 5)
	assert.True(t, r.Trigger())

	ctx := r.Context()
	assert.True(t, ctx.Pending)
	assert.Equal(t, 5, ctx.RemainingSeconds)

	var seen []int
	fires := 0
	for i := 0; i < 8; i++ {
		remaining, fire := r.Tick()
		if fire {
			fires++
		}
		seen = append(seen, remaining)
	}

	assert.Equal(t, 1, fires)
	assert.Equal(t, []int{4, 3, 2, 1, 0, 0, 0, 0}, seen)
	assert.False(t, r.Pending())
	assert.Equal(t, 1, r.Context().Attempt)
}

func TestReconnector_TriggerWhilePending(t *testing.T) {
	r := NewReconnector(true, 3)
	assert.True(t, r.Trigger())
	r.Tick()

	assert.False(t, r.Trigger(), "a live countdown is not restarted")
	assert.Equal(t, 2, r.Context().RemainingSeconds)
}

func TestReconnector_Disabled(t *testing.T) {
	r := NewReconnector(false, 5)
	assert.False(t, r.Trigger())
	assert.False(t, r.Pending())
	assert.Equal(t, 0, r.Context().RemainingSeconds)
	assert.False(t, r.Context().ShouldReconnect)
}

func TestReconnector_Cancel(t *testing.T) {
	for start := 5; start >= 1; start-- {
		r := NewReconnector(true, 5)
		r.Trigger()
		for r.Context().RemainingSeconds > start {
			r.Tick()
		}

		assert.True(t, r.Cancel())
		assert.False(t, r.Pending())
		assert.Equal(t, 0, r.Context().RemainingSeconds)

		_, fire := r.Tick()
		assert.False(t, fire, "cancelled at %d", start)
		assert.Equal(t, 0, r.Context().Attempt)
	}

	assert.False(t, NewReconnector(true, 5).Cancel())
}

func TestReconnector_ResetAttempts(t *testing.T) {
	r := NewReconnector(true, 1)
	r.Trigger()
	r.Tick()
	r.Trigger()
	r.Tick()
	assert.Equal(t, 2, r.Context().Attempt)

	r.ResetAttempts()
	assert.Equal(t, 0, r.Context().Attempt)
}
