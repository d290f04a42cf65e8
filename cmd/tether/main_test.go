package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tether/internal/connection"
	"tether/internal/credentials"
	"tether/pkg/protocol"
)

type fakeTokenStore struct {
	token string
	err   error
}

func (s fakeTokenStore) LoadToken() (string, error) { return s.token, s.err }

func TestResolveToken(t *testing.T) {
	keyringDown := errors.New("keyring locked")

	tests := []struct {
		name       string
		flag       string
		store      tokenLoader
		config     string
		wantToken  string
		wantSource string
		wantErr    error
	}{
		{"flag wins", "from-flag", fakeTokenStore{token: "from-ring"}, "from-config", "from-flag", "flag", nil},
		{"keyring before config", "", fakeTokenStore{token: "from-ring"}, "from-config", "from-ring", "keyring", nil},
		{"empty keyring falls back", "", fakeTokenStore{err: credentials.ErrNoToken}, "from-config", "from-config", "config", nil},
		{"no store", "", nil, "from-config", "from-config", "config", nil},
		{"keyring error keeps config", "", fakeTokenStore{err: keyringDown}, "from-config", "from-config", "config", keyringDown},
		{"keyring error no config", "", fakeTokenStore{err: keyringDown}, "", "", "", keyringDown},
		{"nothing anywhere", "", fakeTokenStore{err: credentials.ErrNoToken}, "", "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, source, err := resolveToken(tt.flag, tt.store, tt.config)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantSource, source)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, "warn", false)
	assert.Equal(t, log.WarnLevel, logger.GetLevel())

	logger = newLogger(&buf, "bogus", false)
	assert.Equal(t, log.InfoLevel, logger.GetLevel())

	logger = newLogger(&buf, "error", true)
	assert.Equal(t, log.DebugLevel, logger.GetLevel(), "--verbose forces debug")

	logger.Debug("dialing", "url", "ws://example")
	assert.Contains(t, buf.String(), "tether")
	assert.Contains(t, buf.String(), "url=ws://example")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestReconnectOverride(t *testing.T) {
	assert.Nil(t, reconnectOverride(false))
	off := reconnectOverride(true)
	require.NotNil(t, off)
	assert.False(t, *off)
}

// recordingOutput captures what a send would print.
type recordingOutput struct {
	waiting  []string
	notices  []string
	chunks   []string
	final    string
	streamed bool
	stopped  bool
}

func (o *recordingOutput) Waiting(text string) { o.waiting = append(o.waiting, text) }
func (o *recordingOutput) Notice(text string)  { o.notices = append(o.notices, text) }
func (o *recordingOutput) Stream(chunk string) { o.chunks = append(o.chunks, chunk) }
func (o *recordingOutput) Stop()               { o.stopped = true }

func (o *recordingOutput) Finish(content string, streamed bool) {
	o.final = content
	o.streamed = streamed
}

// replyServer answers every prompt with the frames reply returns.
func replyServer(t *testing.T, reply func(prompt protocol.Message) []string) (string, chan protocol.Message) {
	t.Helper()
	prompts := make(chan protocol.Message, 4)
	var upgrader websocket.Upgrader

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.DecodeOutbound(data)
			if err != nil {
				continue
			}
			prompts <- msg
			for _, frame := range reply(msg) {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), prompts
}

func stubCorrelationID(t *testing.T, id string) {
	t.Helper()
	orig := newCorrelationID
	newCorrelationID = func() string { return id }
	t.Cleanup(func() { newCorrelationID = orig })
}

func newSendClient(url string) *connection.Client {
	return connection.New(url,
		connection.WithDialer(&connection.WebSocketDialer{HandshakeTimeout: time.Second}),
		connection.WithReconnect(false),
	)
}

func TestRunSend_StreamsReply(t *testing.T) {
	stubCorrelationID(t, "corr-1")
	url, prompts := replyServer(t, func(protocol.Message) []string {
		return []string{
			`{"type":"thinking","payload":{}}`,
			`{"type":"assistant_response","correlationId":"other","payload":{"content":"not ours","done":true}}`,
			`{"type":"tool_call_start","correlationId":"corr-1","payload":{"toolCallId":"t1","name":"search"}}`,
			`{"type":"tool_call_result","correlationId":"corr-1","payload":{"toolCallId":"t1","name":"search","result":"ok"}}`,
			`{"type":"assistant_response","correlationId":"corr-1","payload":{"content":"Hel","done":false}}`,
			`{"type":"assistant_response","correlationId":"corr-1","payload":{"content":"lo","done":false}}`,
			`{"type":"assistant_response","correlationId":"corr-1","payload":{"content":"Hello","done":true}}`,
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := newSendClient(url)
	out := &recordingOutput{}
	reply, err := runSend(ctx, client, "hi there", out)
	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)

	prompt := <-prompts
	assert.Equal(t, "corr-1", prompt.CorrelationID)
	assert.Equal(t, protocol.PromptPayload{Text: "hi there"}, prompt.Payload)

	assert.Equal(t, []string{"Hel", "lo"}, out.chunks)
	assert.Equal(t, []string{"tool search started", "tool search done"}, out.notices)
	assert.Contains(t, out.waiting, "Thinking")
	assert.True(t, out.streamed)
	assert.True(t, out.stopped)
	assert.Equal(t, connection.StateClosed, client.State(), "disconnected after the reply")
}

func TestRunSend_PlainResponse(t *testing.T) {
	stubCorrelationID(t, "corr-2")
	url, _ := replyServer(t, func(protocol.Message) []string {
		return []string{`{"type":"response","correlationId":"corr-2","payload":{"content":"done"}}`}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &recordingOutput{}
	reply, err := runSend(ctx, newSendClient(url), "status?", out)
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
	assert.Equal(t, "done", out.final)
	assert.False(t, out.streamed)
}

func TestRunSend_GatewayError(t *testing.T) {
	stubCorrelationID(t, "corr-3")
	url, _ := replyServer(t, func(protocol.Message) []string {
		return []string{`{"type":"error","correlationId":"corr-3","payload":{"code":"rate_limited","message":"slow down"}}`}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := runSend(ctx, newSendClient(url), "hi", &recordingOutput{})
	require.Error(t, err)
	assert.Equal(t, "gateway error [rate_limited]: slow down", err.Error())
}

func TestRunSend_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := runSend(ctx, newSendClient(url), "hi", &recordingOutput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestRunSend_Timeout(t *testing.T) {
	url, _ := replyServer(t, func(protocol.Message) []string { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := runSend(ctx, newSendClient(url), "hi", &recordingOutput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSSHKeysInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssh", "authorized_keys")
	sshKeysPath = path
	t.Cleanup(func() { sshKeysPath = "" })

	var out bytes.Buffer
	sshKeysInitCmd.SetOut(&out)
	require.NoError(t, sshKeysInitCmd.RunE(sshKeysInitCmd, nil))
	assert.Contains(t, out.String(), "Created")

	_, err := os.Stat(path)
	require.NoError(t, err)

	out.Reset()
	sshKeysListCmd.SetOut(&out)
	require.NoError(t, sshKeysListCmd.RunE(sshKeysListCmd, nil))
	assert.Contains(t, out.String(), "No authorized keys found.")
}
