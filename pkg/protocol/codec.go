package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// envelope is the JSON wire shape shared by both directions
type envelope struct {
	Type          MessageType     `json:"type"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type payloadDecoder func(raw json.RawMessage) (Payload, error)

func decodeAs[P Payload](raw json.RawMessage) (Payload, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

var clientTypes = map[MessageType]payloadDecoder{
	TypePrompt:      decodeAs[PromptPayload],
	TypeAnswer:      decodeAs[AnswerPayload],
	TypeUserMessage: decodeAs[UserMessagePayload],
	TypeHeartbeat:   decodeAs[HeartbeatPayload],
}

var serverTypes = map[MessageType]payloadDecoder{
	TypeResponse:          decodeAs[ResponsePayload],
	TypeThinking:          decodeAs[ThinkingPayload],
	TypeError:             decodeAs[ErrorPayload],
	TypeSystem:            decodeAs[SystemPayload],
	TypeToolCallStart:     decodeAs[ToolCallStartPayload],
	TypeToolCallResult:    decodeAs[ToolCallResultPayload],
	TypeServerInfo:        decodeAs[ServerInfoPayload],
	TypeCommandResult:     decodeAs[CommandResultPayload],
	TypeAssistantResponse: decodeAs[AssistantResponsePayload],
}

func registry(dir Direction) map[MessageType]payloadDecoder {
	if dir == ClientToServer {
		return clientTypes
	}
	return serverTypes
}

// Vocabulary returns the message types a direction may carry, sorted.
func Vocabulary(dir Direction) []MessageType {
	reg := registry(dir)
	types := make([]MessageType, 0, len(reg))
	for t := range reg {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// DirectionOf reports which direction carries the given type.
func DirectionOf(t MessageType) (Direction, bool) {
	if _, ok := clientTypes[t]; ok {
		return ClientToServer, true
	}
	if _, ok := serverTypes[t]; ok {
		return ServerToClient, true
	}
	return 0, false
}

// Encode serializes a message into its wire envelope
func Encode(m Message) ([]byte, error) {
	if m.Payload == nil {
		return nil, protocolErr(m.Type, "missing payload", nil)
	}
	if m.Type != m.Payload.MessageType() {
		return nil, protocolErr(m.Type, fmt.Sprintf("payload is for type %q", m.Payload.MessageType()), nil)
	}
	if _, known := DirectionOf(m.Type); !known {
		return nil, protocolErr(m.Type, "unknown type", nil)
	}
	if err := m.Payload.Validate(); err != nil {
		return nil, protocolErr(m.Type, "invalid payload", err)
	}

	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	data, err := json.Marshal(envelope{
		Type:          m.Type,
		CorrelationID: m.CorrelationID,
		Payload:       raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// DecodeInbound parses a server-to-client frame. Frames with an unknown or
// client-only type, or with a payload that does not match its type, are
// rejected with a *ProtocolError.
func DecodeInbound(data []byte) (Message, error) {
	return decode(data, ServerToClient)
}

// DecodeOutbound parses a client-to-server frame.
func DecodeOutbound(data []byte) (Message, error) {
	return decode(data, ClientToServer)
}

func decode(data []byte, dir Direction) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, protocolErr("", "malformed envelope", err)
	}
	if env.Type == "" {
		return Message{}, protocolErr("", "missing type", nil)
	}

	decodePayload, ok := registry(dir)[env.Type]
	if !ok {
		if other, known := DirectionOf(env.Type); known {
			return Message{}, protocolErr(env.Type, fmt.Sprintf("%s only", other), nil)
		}
		return Message{}, protocolErr(env.Type, "unknown type", nil)
	}

	raw := bytes.TrimSpace(env.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Message{}, protocolErr(env.Type, "missing payload", nil)
	}
	if raw[0] != '{' {
		return Message{}, protocolErr(env.Type, "payload must be an object", nil)
	}

	payload, err := decodePayload(raw)
	if err != nil {
		return Message{}, protocolErr(env.Type, "payload does not match type", err)
	}
	if err := payload.Validate(); err != nil {
		return Message{}, protocolErr(env.Type, "invalid payload", err)
	}

	return Message{
		Type:          env.Type,
		CorrelationID: env.CorrelationID,
		Payload:       payload,
	}, nil
}
