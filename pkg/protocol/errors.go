package protocol

import (
	"errors"
	"fmt"
)

// ErrProtocol is matched by every *ProtocolError via errors.Is.
var ErrProtocol = errors.New("protocol error")

// ProtocolError reports a frame that violates the wire contract. It is
// distinct from transport errors: the channel itself is healthy.
type ProtocolError struct {
	Type   MessageType // offending type, empty if it could not be read
	Reason string
	Err    error // underlying decode error, if any
}

func (e *ProtocolError) Error() string {
	msg := "protocol error"
	if e.Type != "" {
		msg += fmt.Sprintf(" (type %q)", e.Type)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProtocol, e.Err}
	}
	return []error{ErrProtocol}
}

func protocolErr(t MessageType, reason string, err error) *ProtocolError {
	return &ProtocolError{Type: t, Reason: reason, Err: err}
}
