package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLegacy_Prompt(t *testing.T) {
	m, err := DecodeLegacy([]byte(`{"type":"prompt","content":"hello","id":"r1"}`))
	require.NoError(t, err)
	assert.Equal(t, WithCorrelation(PromptPayload{Text: "hello"}, "r1"), m)
}

func TestDecodeLegacy_Answer(t *testing.T) {
	m, err := DecodeLegacy([]byte(`{"type":"answer","content":"yes","id":"q1"}`))
	require.NoError(t, err)
	assert.Equal(t, New(AnswerPayload{QuestionID: "q1", Answer: "yes"}), m)
}

func TestDecodeLegacy_Rejects(t *testing.T) {
	for _, frame := range []string{
		`{"type":"response","content":"x"}`,
		`{"type":"prompt","content":""}`,
		`{"type":"answer","content":"no id"}`,
		`[]`,
	} {
		_, err := DecodeLegacy([]byte(frame))
		assert.True(t, errors.Is(err, ErrProtocol), frame)
	}
}

func TestToLegacy_RoundTrip(t *testing.T) {
	for _, m := range []Message{
		WithCorrelation(PromptPayload{Text: "hello"}, "r1"),
		New(AnswerPayload{QuestionID: "q1", Answer: "yes"}),
	} {
		f, err := ToLegacy(m)
		require.NoError(t, err)
		back, err := FromLegacy(f)
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
}

func TestToLegacy_NoShape(t *testing.T) {
	_, err := ToLegacy(New(HeartbeatPayload{SentAt: 1}))
	assert.True(t, errors.Is(err, ErrProtocol))
}
