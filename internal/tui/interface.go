package tui

import (
	"tether/internal/connection"
	"tether/pkg/protocol"
)

// GatewayClient is the part of connection.Client the TUI drives.
type GatewayClient interface {
	Connect()
	Disconnect()
	Send(msg protocol.Message) error
	IsConnected() bool
	State() connection.State
	Reconnect() connection.ReconnectContext
	URL() string
	SetHandlers(h connection.Handlers)
}

var _ GatewayClient = (*connection.Client)(nil)
