package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tether/pkg/protocol"
)

func stubCorrelationIDs(t *testing.T) {
	t.Helper()
	orig := newCorrelationID
	newCorrelationID = func() string { return "corr-1" }
	t.Cleanup(func() { newCorrelationID = orig })
}

func TestRouteInput_LocalCommands(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{"", ActionNone},
		{"   ", ActionNone},
		{"/quit", ActionQuit},
		{"/exit", ActionQuit},
		{"/help", ActionHelp},
		{"/HELP", ActionHelp},
		{"/clear", ActionClear},
		{"/reconnect", ActionReconnect},
		{"/answer", ActionUsage},
		{"/answer q1", ActionUsage},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteInput(tt.input).Action)
		})
	}
}

func TestRouteInput_Prompt(t *testing.T) {
	stubCorrelationIDs(t)

	r := RouteInput("  what's the weather?  ")
	require.Equal(t, ActionSend, r.Action)
	assert.Equal(t, protocol.TypePrompt, r.Message.Type)
	assert.Equal(t, "corr-1", r.Message.CorrelationID)
	assert.Equal(t, protocol.PromptPayload{Text: "what's the weather?"}, r.Message.Payload)
}

func TestRouteInput_Answer(t *testing.T) {
	stubCorrelationIDs(t)

	r := RouteInput("/answer q-42 yes please, go ahead")
	require.Equal(t, ActionSend, r.Action)
	assert.Equal(t, protocol.TypeAnswer, r.Message.Type)
	assert.Equal(t, "corr-1", r.Message.CorrelationID)
	assert.Equal(t, protocol.AnswerPayload{QuestionID: "q-42", Answer: "yes please, go ahead"}, r.Message.Payload)
}

func TestRouteInput_UnknownCommandGoesToGateway(t *testing.T) {
	r := RouteInput("/model opus")
	require.Equal(t, ActionSend, r.Action)
	assert.Equal(t, protocol.TypeUserMessage, r.Message.Type)
	assert.Empty(t, r.Message.CorrelationID)
	assert.Equal(t, protocol.UserMessagePayload{Content: "/model opus"}, r.Message.Payload)
	assert.NoError(t, r.Message.Payload.Validate())
}
