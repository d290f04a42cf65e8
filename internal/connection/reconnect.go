package connection

// DefaultReconnectDelay is the countdown length, in seconds, before an
// automatic reconnect fires.
const DefaultReconnectDelay = 5

// ReconnectContext is a snapshot of the reconnection policy.
type ReconnectContext struct {
	ShouldReconnect  bool
	Pending          bool
	RemainingSeconds int
	Attempt          int
}

// Reconnector is the fixed-delay reconnection policy. It only keeps the
// countdown; driving the ticks and re-dialing is up to the owner.
// Not safe for concurrent use.
type Reconnector struct {
	shouldReconnect bool
	delay           int
	pending         bool
	remaining       int
	attempt         int
}

// NewReconnector creates a policy with the given countdown length in seconds.
func NewReconnector(shouldReconnect bool, delay int) *Reconnector {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Reconnector{shouldReconnect: shouldReconnect, delay: delay}
}

// Trigger starts a countdown. It returns false when reconnecting is disabled
// or a countdown is already live.
func (r *Reconnector) Trigger() bool {
	if !r.shouldReconnect || r.pending {
		return false
	}
	r.pending = true
	r.remaining = r.delay
	return true
}

// Tick advances the countdown by one second. fire is true exactly once per
// countdown, on the tick that reaches zero.
func (r *Reconnector) Tick() (remaining int, fire bool) {
	if !r.pending {
		return r.remaining, false
	}
	r.remaining--
	if r.remaining > 0 {
		return r.remaining, false
	}
	r.remaining = 0
	r.pending = false
	r.attempt++
	return 0, true
}

// Cancel stops a live countdown. It reports whether one was live.
func (r *Reconnector) Cancel() bool {
	was := r.pending
	r.pending = false
	r.remaining = 0
	return was
}

// Pending reports whether a countdown is live.
func (r *Reconnector) Pending() bool {
	return r.pending
}

// Delay returns the countdown length in seconds.
func (r *Reconnector) Delay() int {
	return r.delay
}

// Context returns a snapshot of the policy.
func (r *Reconnector) Context() ReconnectContext {
	return ReconnectContext{
		ShouldReconnect:  r.shouldReconnect,
		Pending:          r.pending,
		RemainingSeconds: r.remaining,
		Attempt:          r.attempt,
	}
}

// ResetAttempts zeroes the attempt counter; the client calls it once a
// channel opens.
func (r *Reconnector) ResetAttempts() {
	r.attempt = 0
}
