package protocol

import (
	"encoding/json"
	"fmt"
)

// LegacyFrame is the loose shape older terminal clients put on the wire:
// a bare type of "prompt" or "answer" with the text inlined. It is not
// interchangeable with the canonical envelope; use FromLegacy/ToLegacy.
type LegacyFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	ID      string `json:"id,omitempty"`
}

// DecodeLegacy parses a legacy frame and maps it onto a canonical message.
func DecodeLegacy(data []byte) (Message, error) {
	var f LegacyFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return Message{}, protocolErr("", "malformed legacy frame", err)
	}
	return FromLegacy(f)
}

// FromLegacy maps a legacy frame onto the canonical envelope.
// The legacy ID becomes the correlation ID of a prompt and the question ID
// of an answer.
func FromLegacy(f LegacyFrame) (Message, error) {
	var m Message
	switch MessageType(f.Type) {
	case TypePrompt:
		m = WithCorrelation(PromptPayload{Text: f.Content}, f.ID)
	case TypeAnswer:
		m = New(AnswerPayload{QuestionID: f.ID, Answer: f.Content})
	default:
		return Message{}, protocolErr(MessageType(f.Type), "no legacy mapping", nil)
	}
	if err := m.Payload.Validate(); err != nil {
		return Message{}, protocolErr(m.Type, "invalid legacy frame", err)
	}
	return m, nil
}

// ToLegacy maps a canonical prompt or answer back onto the legacy shape.
func ToLegacy(m Message) (LegacyFrame, error) {
	switch p := m.Payload.(type) {
	case PromptPayload:
		return LegacyFrame{Type: string(TypePrompt), Content: p.Text, ID: m.CorrelationID}, nil
	case AnswerPayload:
		return LegacyFrame{Type: string(TypeAnswer), Content: p.Answer, ID: p.QuestionID}, nil
	default:
		return LegacyFrame{}, protocolErr(m.Type, fmt.Sprintf("%T has no legacy shape", m.Payload), nil)
	}
}
