package tui

import (
	"strings"

	"github.com/google/uuid"

	"tether/pkg/protocol"
)

// Action says what the model does with one line of input.
type Action int

const (
	ActionNone Action = iota
	ActionSend
	ActionQuit
	ActionHelp
	ActionClear
	ActionReconnect
	ActionUsage
)

// Routed is the outcome of routing one line of input.
type Routed struct {
	Action  Action
	Message protocol.Message // set for ActionSend
	Notice  string           // set for ActionUsage
}

// newCorrelationID is swapped in tests.
var newCorrelationID = uuid.NewString

const helpText = "Available Commands:\n\n" +
	"/help - Show this message\n" +
	"/clear - Clear the chat view\n" +
	"/reconnect - Connect now instead of waiting for the countdown\n" +
	"/answer <id> <text> - Answer a question from the assistant\n" +
	"/quit, /exit - Exit\n\n" +
	"Any other /command is passed to the gateway.\n\n" +
	"Alt+Enter: Insert new line\n" +
	"Tab: Toggle sidebar | Shift+Tab: Cycle sidebar\n" +
	"Ctrl+R: Reconnect | PgUp/PgDn: Scroll chat | Ctrl+C: Quit"

// RouteInput turns a line typed by the user into a local action or an
// outbound envelope. Plain text becomes a prompt with a fresh correlation
// ID; unknown slash commands travel to the gateway verbatim.
func RouteInput(text string) Routed {
	text = strings.TrimSpace(text)
	if text == "" {
		return Routed{Action: ActionNone}
	}
	if !strings.HasPrefix(text, "/") {
		return Routed{
			Action:  ActionSend,
			Message: protocol.WithCorrelation(protocol.PromptPayload{Text: text}, newCorrelationID()),
		}
	}

	name, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "/quit", "/exit":
		return Routed{Action: ActionQuit}
	case "/help", "/commands":
		return Routed{Action: ActionHelp}
	case "/clear":
		return Routed{Action: ActionClear}
	case "/reconnect":
		return Routed{Action: ActionReconnect}
	case "/answer":
		id, answer, _ := strings.Cut(args, " ")
		answer = strings.TrimSpace(answer)
		if id == "" || answer == "" {
			return Routed{Action: ActionUsage, Notice: "Usage: /answer <question-id> <text>"}
		}
		return Routed{
			Action:  ActionSend,
			Message: protocol.WithCorrelation(protocol.AnswerPayload{QuestionID: id, Answer: answer}, newCorrelationID()),
		}
	}

	return Routed{
		Action:  ActionSend,
		Message: protocol.New(protocol.UserMessagePayload{Content: text}),
	}
}
