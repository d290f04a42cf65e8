package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageType defines the type of protocol message
type MessageType string

const (
	// Client-originated message types (client -> gateway)
	TypePrompt      MessageType = "prompt"       // user prompt for the assistant
	TypeAnswer      MessageType = "answer"       // reply to a question the assistant asked
	TypeUserMessage MessageType = "user_message" // free-form user message (slash commands included)
	TypeHeartbeat   MessageType = "heartbeat"    // keepalive while the channel is open

	// Server-originated message types (gateway -> client)
	TypeResponse          MessageType = "response"           // complete assistant reply
	TypeThinking          MessageType = "thinking"           // assistant is working
	TypeError             MessageType = "error"              // error notification
	TypeSystem            MessageType = "system"             // system notice
	TypeToolCallStart     MessageType = "tool_call_start"    // tool execution began
	TypeToolCallResult    MessageType = "tool_call_result"   // tool execution finished
	TypeServerInfo        MessageType = "server_info"        // server metadata on connect
	TypeCommandResult     MessageType = "command_result"     // result of a slash command
	TypeAssistantResponse MessageType = "assistant_response" // streamed assistant output
)

// Direction identifies which side of the channel originates a message type.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client-to-server"
	case ServerToClient:
		return "server-to-client"
	default:
		return "unknown"
	}
}

// Payload is the type-dependent body of an envelope.
type Payload interface {
	MessageType() MessageType
	Validate() error
}

// Message is a decoded envelope. Messages are values: once built they are
// not mutated by anything in this repository.
type Message struct {
	Type          MessageType
	CorrelationID string
	Payload       Payload
}

// New wraps a payload in a message of the payload's type.
func New(p Payload) Message {
	return Message{Type: p.MessageType(), Payload: p}
}

// WithCorrelation wraps a payload and tags it with a correlation ID for
// request/response pairing.
func WithCorrelation(p Payload, correlationID string) Message {
	return Message{Type: p.MessageType(), CorrelationID: correlationID, Payload: p}
}

// PromptPayload asks the assistant something
type PromptPayload struct {
	Text      string `json:"text"`
	SessionID string `json:"sessionId,omitempty"`
}

func (PromptPayload) MessageType() MessageType { return TypePrompt }

func (p PromptPayload) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

// AnswerPayload replies to a question raised by the assistant
type AnswerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (AnswerPayload) MessageType() MessageType { return TypeAnswer }

func (p AnswerPayload) Validate() error {
	if p.QuestionID == "" {
		return fmt.Errorf("questionId is required")
	}
	return nil
}

// UserMessagePayload carries free-form user input, including raw slash commands
type UserMessagePayload struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId,omitempty"`
}

func (UserMessagePayload) MessageType() MessageType { return TypeUserMessage }

func (p UserMessagePayload) Validate() error {
	if p.Content == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// HeartbeatPayload is sent periodically while the channel is open
type HeartbeatPayload struct {
	SentAt int64 `json:"sentAt"` // unix milliseconds
}

func (HeartbeatPayload) MessageType() MessageType { return TypeHeartbeat }
func (HeartbeatPayload) Validate() error          { return nil }

// ResponsePayload is a complete assistant reply
type ResponsePayload struct {
	Content   string `json:"content"`
	SessionID string `json:"sessionId,omitempty"`
}

func (ResponsePayload) MessageType() MessageType { return TypeResponse }
func (ResponsePayload) Validate() error          { return nil }

// ThinkingPayload signals that the assistant is working on a reply
type ThinkingPayload struct {
	Content string `json:"content,omitempty"`
}

func (ThinkingPayload) MessageType() MessageType { return TypeThinking }
func (ThinkingPayload) Validate() error          { return nil }

// ErrorPayload delivers an error notification from the gateway
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (ErrorPayload) MessageType() MessageType { return TypeError }

func (p ErrorPayload) Validate() error {
	if p.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

// SystemPayload is a system notice for display
type SystemPayload struct {
	Message string `json:"message"`
}

func (SystemPayload) MessageType() MessageType { return TypeSystem }
func (SystemPayload) Validate() error          { return nil }

// ToolCallStartPayload reports the start of a tool execution. Arguments
// stay raw so numbers and empty objects survive a round trip; Encode
// compacts them.
type ToolCallStartPayload struct {
	ToolCallID string          `json:"toolCallId"`
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
}

func (ToolCallStartPayload) MessageType() MessageType { return TypeToolCallStart }

func (p ToolCallStartPayload) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(p.Arguments) > 0 {
		trimmed := bytes.TrimSpace(p.Arguments)
		if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
			return fmt.Errorf("arguments must be a JSON object")
		}
	}
	return nil
}

// ToolCallResultPayload reports the outcome of a tool execution
type ToolCallResultPayload struct {
	ToolCallID string `json:"toolCallId"`
	Name       string `json:"name,omitempty"`
	Result     string `json:"result"`
	IsError    bool   `json:"isError,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func (ToolCallResultPayload) MessageType() MessageType { return TypeToolCallResult }

func (p ToolCallResultPayload) Validate() error {
	if p.ToolCallID == "" {
		return fmt.Errorf("toolCallId is required")
	}
	return nil
}

// ServerInfoPayload delivers server metadata on connect
type ServerInfoPayload struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Model   string   `json:"model,omitempty"`
	Tools   []string `json:"tools"`
}

func (ServerInfoPayload) MessageType() MessageType { return TypeServerInfo }
func (ServerInfoPayload) Validate() error          { return nil }

// CommandResultPayload delivers the result of a slash command
type CommandResultPayload struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

func (CommandResultPayload) MessageType() MessageType { return TypeCommandResult }

func (p CommandResultPayload) Validate() error {
	if p.Command == "" {
		return fmt.Errorf("command is required")
	}
	return nil
}

// AssistantResponsePayload is a chunk of streamed assistant output.
// Done marks the final chunk; Content on the final chunk is the full reply.
type AssistantResponsePayload struct {
	Content          string `json:"content"`
	Done             bool   `json:"done"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"promptTokens,omitempty"`
	CompletionTokens int    `json:"completionTokens,omitempty"`
}

func (AssistantResponsePayload) MessageType() MessageType { return TypeAssistantResponse }
func (AssistantResponsePayload) Validate() error          { return nil }
