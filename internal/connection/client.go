package connection

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"tether/pkg/protocol"
)

// ErrNotConnected is returned by Send when the channel is not open.
var ErrNotConnected = errors.New("not connected")

const (
	// CloseNormal is the close code reported for a caller-initiated disconnect.
	CloseNormal = 1000
	// CloseAbnormal is the close code reported when the channel failed.
	CloseAbnormal = 1006
)

// Client is a resilient connection to the assistant gateway. It owns one
// channel instance at a time, tracks its lifecycle and re-dials after an
// unsolicited closure once the reconnect countdown reaches zero.
//
// All methods are safe for concurrent use. Handlers run without the client
// lock held, so they may call back into the client.
type Client struct {
	url       string
	dialer    Dialer
	scheduler Scheduler
	logger    *log.Logger
	recorder  Recorder
	heartbeat time.Duration
	handlers  handlerCell

	shouldReconnect bool
	reconnectDelay  int

	mu          sync.Mutex
	machine     *StateMachine
	channel     Channel
	residual    Channel
	generation  uint64
	explicit    bool
	policy      *Reconnector
	countdownID uint64
	stopTick    func()
	stopBeat    func()
}

// New creates a client for the given endpoint. It does not dial until
// Connect is called.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:             url,
		scheduler:       TickerScheduler{},
		logger:          log.New(io.Discard),
		recorder:        nopRecorder{},
		shouldReconnect: true,
		reconnectDelay:  DefaultReconnectDelay,
		machine:         NewStateMachine(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = &WebSocketDialer{}
	}
	c.policy = NewReconnector(c.shouldReconnect, c.reconnectDelay)
	return c
}

// URL returns the endpoint the client dials.
func (c *Client) URL() string {
	return c.url
}

// State returns the lifecycle state of the current channel instance.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// IsConnected reports whether the channel is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

// Reconnect returns a snapshot of the reconnection policy.
func (c *Client) Reconnect() ReconnectContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Context()
}

// RemainingSeconds returns the seconds left on the reconnect countdown.
func (c *Client) RemainingSeconds() int {
	return c.Reconnect().RemainingSeconds
}

// Connect dials a new channel instance. It is a no-op while an instance is
// live.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.channel != nil || c.machine.State() == StateClosing {
		c.mu.Unlock()
		return
	}
	c.explicit = false
	cancelled := c.cancelCountdownLocked()
	change, residual := c.dialLocked()
	ctx := c.policy.Context()
	c.mu.Unlock()

	closeQuietly(residual)
	if change != nil {
		c.emitState(*change)
	}
	if cancelled {
		c.emitCountdown(ctx)
	}
}

// Disconnect closes the channel and suppresses reconnection until the next
// Connect. It also cancels a pending countdown.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.explicit = true
	cancelled := c.cancelCountdownLocked()
	c.stopHeartbeatLocked()
	residual := c.residual
	c.residual = nil
	ctx := c.policy.Context()

	if s := c.machine.State(); s == StateClosed || s == StateClosing {
		c.mu.Unlock()
		closeQuietly(residual)
		if cancelled {
			c.logger.Info("reconnect cancelled")
			c.emitCountdown(ctx)
		}
		return
	}

	from, _ := c.machine.Transition(StateClosing)
	ch := c.channel
	c.channel = nil
	// late callbacks from the instance being torn down are ignored
	c.generation++
	machine := c.machine
	c.mu.Unlock()

	c.logger.Info("disconnecting", "url", c.url)
	c.emitState(StateChange{From: from, To: StateClosing})
	closeQuietly(ch)
	closeQuietly(residual)

	c.mu.Lock()
	_, err := machine.Transition(StateClosed)
	c.mu.Unlock()
	if err == nil {
		c.emitState(StateChange{From: StateClosing, To: StateClosed})
		if fn := c.handlers.load().OnClose; fn != nil {
			fn(CloseEvent{Code: CloseNormal, Reason: "client disconnect", Solicited: true})
		}
	}
	if cancelled {
		c.emitCountdown(ctx)
	}
}

// Send encodes msg and writes it to the channel if it is open.
func (c *Client) Send(msg protocol.Message) error {
	if dir, ok := protocol.DirectionOf(msg.Type); !ok || dir != protocol.ClientToServer {
		return fmt.Errorf("%w: %q is not an outbound type", protocol.ErrProtocol, msg.Type)
	}

	c.mu.Lock()
	state := c.machine.State()
	ch := c.channel
	c.mu.Unlock()

	if state != StateOpen || ch == nil {
		c.recorder.SendRejected(string(msg.Type))
		c.logger.Warn("not connected, message not sent", "type", msg.Type, "state", state)
		return ErrNotConnected
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		c.logger.Error("failed to encode message", "type", msg.Type, "err", err)
		return err
	}
	if err := ch.Send(data); err != nil {
		c.logger.Warn("failed to send message", "type", msg.Type, "err", err)
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}

	c.recorder.MessageSent(string(msg.Type))
	c.logger.Debug("sent", "type", msg.Type, "correlation_id", msg.CorrelationID)
	return nil
}

// dialLocked creates a new channel instance. It returns the state change to
// report when a fresh machine replaced a closed one, and the handle of the
// previous instance for the caller to close once unlocked.
func (c *Client) dialLocked() (change *StateChange, residual Channel) {
	if from := c.machine.State(); from != StateConnecting {
		c.machine = NewStateMachine()
		change = &StateChange{From: from, To: StateConnecting}
	}

	residual = c.residual
	c.residual = nil

	c.generation++
	gen := c.generation
	c.logger.Debug("dialing", "url", c.url, "generation", gen)
	c.channel = c.dialer.Dial(c.url, ChannelEvents{
		Open:    func() { c.handleOpen(gen) },
		Close:   func(code int, reason string) { c.handleClosed(gen, CloseEvent{Code: code, Reason: reason}) },
		Error:   func(err error) { c.handleError(gen, err) },
		Message: func(data []byte) { c.handleMessage(gen, data) },
	})
	return change, residual
}

func (c *Client) handleOpen(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	from, err := c.machine.Transition(StateOpen)
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("ignoring open", "err", err)
		return
	}
	c.policy.ResetAttempts()
	c.startHeartbeatLocked()
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.url)
	c.emitState(StateChange{From: from, To: StateOpen})
	if fn := c.handlers.load().OnOpen; fn != nil {
		fn()
	}
}

func (c *Client) handleError(gen uint64, err error) {
	c.mu.Lock()
	live := gen == c.generation && c.machine.State() != StateClosed
	c.mu.Unlock()
	if !live {
		return
	}

	c.logger.Warn("connection error", "url", c.url, "err", err)
	if fn := c.handlers.load().OnError; fn != nil {
		fn(err)
	}
	c.handleClosed(gen, CloseEvent{Code: CloseAbnormal, Reason: err.Error()})
}

func (c *Client) handleClosed(gen uint64, ev CloseEvent) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	from, err := c.machine.Transition(StateClosed)
	if err != nil {
		c.mu.Unlock()
		return
	}
	c.residual = c.channel
	c.channel = nil
	c.stopHeartbeatLocked()

	scheduled := false
	var id uint64
	if !c.explicit && c.policy.Trigger() {
		scheduled = true
		c.countdownID++
		id = c.countdownID
		c.stopTick = c.scheduler.Every(time.Second, func() { c.tick(id) })
	}
	c.mu.Unlock()

	c.logger.Info("connection closed", "url", c.url, "code", ev.Code, "reason", ev.Reason)
	c.emitState(StateChange{From: from, To: StateClosed})
	if fn := c.handlers.load().OnClose; fn != nil {
		fn(ev)
	}
	if !scheduled {
		return
	}

	// OnClose may already have cancelled the countdown
	c.mu.Lock()
	live := id == c.countdownID && c.policy.Pending()
	ctx := c.policy.Context()
	c.mu.Unlock()
	if live {
		c.recorder.ReconnectScheduled()
		c.recorder.Countdown(ctx.RemainingSeconds)
		c.logger.Info("reconnecting", "in", ctx.RemainingSeconds, "attempt", ctx.Attempt+1)
		c.emitCountdown(ctx)
	}
}

func (c *Client) handleMessage(gen uint64, data []byte) {
	c.mu.Lock()
	live := gen == c.generation && c.machine.State() == StateOpen
	c.mu.Unlock()
	if !live {
		return
	}

	msg, err := protocol.DecodeInbound(data)
	if err != nil {
		c.recorder.ProtocolError()
		c.logger.Error("rejected inbound frame", "err", err)
		if fn := c.handlers.load().OnProtocolError; fn != nil {
			fn(err)
		}
		return
	}

	c.recorder.MessageReceived(string(msg.Type))
	if fn := c.handlers.load().OnMessage; fn != nil {
		fn(msg)
	}
}

// tick advances the countdown of the given id and re-dials when it fires.
func (c *Client) tick(id uint64) {
	c.mu.Lock()
	if id != c.countdownID || !c.policy.Pending() {
		c.mu.Unlock()
		return
	}
	remaining, fire := c.policy.Tick()
	if fire && c.stopTick != nil {
		c.stopTick()
		c.stopTick = nil
	}
	ctx := c.policy.Context()

	var change *StateChange
	var residual Channel
	if fire && !c.explicit && c.channel == nil {
		change, residual = c.dialLocked()
	}
	c.mu.Unlock()

	closeQuietly(residual)
	c.recorder.Countdown(remaining)
	c.emitCountdown(ctx)
	if change != nil {
		c.recorder.ReconnectAttempted()
		c.logger.Info("reconnect attempt", "url", c.url, "attempt", ctx.Attempt)
		c.emitState(*change)
	}
}

func (c *Client) cancelCountdownLocked() bool {
	if c.stopTick != nil {
		c.stopTick()
		c.stopTick = nil
	}
	c.countdownID++
	cancelled := c.policy.Cancel()
	if cancelled {
		c.recorder.Countdown(0)
	}
	return cancelled
}

func (c *Client) startHeartbeatLocked() {
	if c.heartbeat <= 0 {
		return
	}
	c.stopHeartbeatLocked()
	c.stopBeat = c.scheduler.Every(c.heartbeat, func() {
		if !c.IsConnected() {
			return
		}
		hb := protocol.New(protocol.HeartbeatPayload{SentAt: time.Now().UnixMilli()})
		if err := c.Send(hb); err != nil {
			c.logger.Debug("heartbeat not sent", "err", err)
		}
	})
}

func (c *Client) stopHeartbeatLocked() {
	if c.stopBeat != nil {
		c.stopBeat()
		c.stopBeat = nil
	}
}

func (c *Client) emitState(change StateChange) {
	c.recorder.StateChanged(change.From.String(), change.To.String())
	c.logger.Debug("state", "from", change.From, "to", change.To)
	if fn := c.handlers.load().OnStateChange; fn != nil {
		fn(change)
	}
}

func (c *Client) emitCountdown(ctx ReconnectContext) {
	if fn := c.handlers.load().OnCountdown; fn != nil {
		fn(ctx)
	}
}

func closeQuietly(ch Channel) {
	if ch != nil {
		_ = ch.Close()
	}
}
