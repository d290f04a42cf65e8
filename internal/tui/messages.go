package tui

import (
	"tether/internal/connection"
	"tether/pkg/protocol"
)

// BubbleTea message types produced by the connection bridge

// StateMsg reports a connection lifecycle transition
type StateMsg struct {
	connection.StateChange
}

// CountdownMsg reports the reconnect countdown
type CountdownMsg struct {
	connection.ReconnectContext
}

// ClosedMsg signals that the channel closed
type ClosedMsg struct {
	connection.CloseEvent
}

// ConnErrorMsg signals a channel failure
type ConnErrorMsg struct {
	Err error
}

// ProtocolErrorMsg signals an inbound frame the codec rejected
type ProtocolErrorMsg struct {
	Err error
}

// InboundMsg delivers a decoded server envelope
type InboundMsg struct {
	protocol.Message
}

// ThinkingTickMsg drives the KITT scanner animation in the chat view.
type ThinkingTickMsg struct{}
