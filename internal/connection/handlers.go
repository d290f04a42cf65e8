package connection

import (
	"sync"

	"tether/pkg/protocol"
)

// CloseEvent describes a transition to StateClosed.
type CloseEvent struct {
	Code   int
	Reason string
	// Solicited is true when the closure came from Disconnect.
	Solicited bool
}

// Handlers are the subscriber callbacks of a Client. Each kind has a single
// slot; nil slots are skipped.
type Handlers struct {
	OnOpen    func()
	OnClose   func(CloseEvent)
	OnError   func(error)
	OnMessage func(protocol.Message)

	// OnProtocolError receives inbound frames rejected by the codec.
	OnProtocolError func(error)
	// OnStateChange receives every lifecycle transition.
	OnStateChange func(StateChange)
	// OnCountdown receives the reconnect context whenever the countdown
	// starts, ticks, fires or is cancelled.
	OnCountdown func(ReconnectContext)
}

// handlerCell holds the current Handlers. Callbacks are read from the cell at
// every invocation so replacing a closure takes effect without re-dialing.
type handlerCell struct {
	mu sync.RWMutex
	h  Handlers
}

func (c *handlerCell) load() Handlers {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.h
}

func (c *handlerCell) store(h Handlers) {
	c.mu.Lock()
	c.h = h
	c.mu.Unlock()
}

func (c *handlerCell) update(fn func(h *Handlers)) {
	c.mu.Lock()
	fn(&c.h)
	c.mu.Unlock()
}

// SetHandlers replaces every handler slot.
func (c *Client) SetHandlers(h Handlers) {
	c.handlers.store(h)
}

// SetOnOpen replaces the OnOpen slot.
func (c *Client) SetOnOpen(fn func()) {
	c.handlers.update(func(h *Handlers) { h.OnOpen = fn })
}

// SetOnClose replaces the OnClose slot.
func (c *Client) SetOnClose(fn func(CloseEvent)) {
	c.handlers.update(func(h *Handlers) { h.OnClose = fn })
}

// SetOnError replaces the OnError slot.
func (c *Client) SetOnError(fn func(error)) {
	c.handlers.update(func(h *Handlers) { h.OnError = fn })
}

// SetOnMessage replaces the OnMessage slot.
func (c *Client) SetOnMessage(fn func(protocol.Message)) {
	c.handlers.update(func(h *Handlers) { h.OnMessage = fn })
}

// SetOnProtocolError replaces the OnProtocolError slot.
func (c *Client) SetOnProtocolError(fn func(error)) {
	c.handlers.update(func(h *Handlers) { h.OnProtocolError = fn })
}

// SetOnStateChange replaces the OnStateChange slot.
func (c *Client) SetOnStateChange(fn func(StateChange)) {
	c.handlers.update(func(h *Handlers) { h.OnStateChange = fn })
}

// SetOnCountdown replaces the OnCountdown slot.
func (c *Client) SetOnCountdown(fn func(ReconnectContext)) {
	c.handlers.update(func(h *Handlers) { h.OnCountdown = fn })
}
