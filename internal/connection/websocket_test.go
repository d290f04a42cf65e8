package connection

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tether/pkg/protocol"
)

type gatewayServer struct {
	*httptest.Server
	protocols chan []string
	conns     chan *websocket.Conn
	received  chan []byte
	closes    chan int
}

func newGatewayServer(t *testing.T) *gatewayServer {
	t.Helper()
	s := &gatewayServer{
		protocols: make(chan []string, 8),
		conns:     make(chan *websocket.Conn, 8),
		received:  make(chan []byte, 64),
		closes:    make(chan int, 8),
	}
	upgrader := websocket.Upgrader{Subprotocols: []string{AuthSubprotocol}}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protocols := websocket.Subprotocols(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.protocols <- protocols
		s.conns <- conn

		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					if ce, ok := err.(*websocket.CloseError); ok {
						s.closes <- ce.Code
					}
					return
				}
				s.received <- data
			}
		}()
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *gatewayServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func recv[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

type wsEvents struct {
	opens    chan struct{}
	closes   chan CloseEvent
	errs     chan error
	messages chan protocol.Message
}

func newWSEvents() *wsEvents {
	return &wsEvents{
		opens:    make(chan struct{}, 8),
		closes:   make(chan CloseEvent, 8),
		errs:     make(chan error, 8),
		messages: make(chan protocol.Message, 8),
	}
}

func (e *wsEvents) handlers() Handlers {
	return Handlers{
		OnOpen:    func() { e.opens <- struct{}{} },
		OnClose:   func(ev CloseEvent) { e.closes <- ev },
		OnError:   func(err error) { e.errs <- err },
		OnMessage: func(m protocol.Message) { e.messages <- m },
	}
}

func TestWebSocket_RoundTrip(t *testing.T) {
	srv := newGatewayServer(t)
	ev := newWSEvents()
	c := New(srv.wsURL(),
		WithDialer(&WebSocketDialer{Token: "secret"}),
		WithScheduler(&manualScheduler{}),
		WithHandlers(ev.handlers()),
	)

	c.Connect()
	recv(t, ev.opens)
	assert.Equal(t, []string{AuthSubprotocol, "secret"}, recv(t, srv.protocols))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Send(protocol.WithCorrelation(protocol.PromptPayload{Text: "ping"}, "c-9")))
	assert.JSONEq(t, `{"type":"prompt","correlationId":"c-9","payload":{"text":"ping"}}`, string(recv(t, srv.received)))

	conn := recv(t, srv.conns)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"response","payload":{"content":"pong"}}`)))
	msg := recv(t, ev.messages)
	assert.Equal(t, protocol.ResponsePayload{Content: "pong"}, msg.Payload)

	c.Disconnect()
	closed := recv(t, ev.closes)
	assert.True(t, closed.Solicited)
	assert.Equal(t, websocket.CloseNormalClosure, recv(t, srv.closes))
	assert.Equal(t, StateClosed, c.State())
	assert.False(t, c.Reconnect().Pending)
}

func TestWebSocket_ServerDropReconnects(t *testing.T) {
	srv := newGatewayServer(t)
	ev := newWSEvents()
	sched := &manualScheduler{}
	c := New(srv.wsURL(),
		WithDialer(&WebSocketDialer{}),
		WithScheduler(sched),
		WithHandlers(ev.handlers()),
	)
	t.Cleanup(c.Disconnect)

	c.Connect()
	recv(t, ev.opens)
	conn := recv(t, srv.conns)

	// drop the TCP connection without a close frame
	require.NoError(t, conn.UnderlyingConn().Close())

	recv(t, ev.errs)
	closed := recv(t, ev.closes)
	assert.False(t, closed.Solicited)
	assert.Equal(t, CloseAbnormal, closed.Code)
	assert.Equal(t, StateClosed, c.State())
	assert.True(t, c.Reconnect().Pending)
	assert.Equal(t, 5, c.RemainingSeconds())

	for i := 0; i < 5; i++ {
		sched.fire(time.Second)
	}

	recv(t, ev.opens)
	recv(t, srv.conns)
	assert.True(t, c.IsConnected())
	assert.Equal(t, 0, c.Reconnect().Attempt, "attempts reset once open")
}

func TestWebSocket_CleanServerClose(t *testing.T) {
	srv := newGatewayServer(t)
	ev := newWSEvents()
	c := New(srv.wsURL(),
		WithDialer(&WebSocketDialer{}),
		WithScheduler(&manualScheduler{}),
		WithHandlers(ev.handlers()),
	)
	t.Cleanup(c.Disconnect)

	c.Connect()
	recv(t, ev.opens)
	conn := recv(t, srv.conns)

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "restarting")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	closed := recv(t, ev.closes)
	assert.Equal(t, websocket.CloseGoingAway, closed.Code)
	assert.Equal(t, "restarting", closed.Reason)
	assert.Empty(t, ev.errs)
	assert.True(t, c.Reconnect().Pending)
}

func TestWebSocket_EstablishmentFailure(t *testing.T) {
	srv := newGatewayServer(t)
	url := srv.wsURL()
	srv.Close()

	ev := newWSEvents()
	c := New(url,
		WithDialer(&WebSocketDialer{HandshakeTimeout: time.Second}),
		WithScheduler(&manualScheduler{}),
		WithHandlers(ev.handlers()),
	)
	t.Cleanup(c.Disconnect)

	c.Connect()
	err := recv(t, ev.errs)
	assert.Contains(t, err.Error(), "failed to connect")
	recv(t, ev.closes)
	assert.Equal(t, StateClosed, c.State())
	assert.True(t, c.Reconnect().Pending)
}

func TestWebSocket_SendAfterCloseFails(t *testing.T) {
	srv := newGatewayServer(t)
	events := ChannelEvents{
		Open:    func() {},
		Close:   func(int, string) {},
		Error:   func(error) {},
		Message: func([]byte) {},
	}
	ch := (&WebSocketDialer{}).Dial(srv.wsURL(), events)
	recv(t, srv.conns)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Send([]byte(`{}`)), ErrNotConnected)
}
