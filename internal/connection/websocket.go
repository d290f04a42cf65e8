package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// AuthSubprotocol is the first subprotocol offered when a token is set; the
// token itself follows it.
const AuthSubprotocol = "tether-auth"

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
)

// WebSocketDialer dials the gateway with gorilla/websocket.
type WebSocketDialer struct {
	Token string
	// Header is sent with the handshake request (User-Agent and the like).
	Header           http.Header
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// PingInterval enables WebSocket ping frames while the channel is open.
	PingInterval time.Duration
}

// Dial starts establishing a channel in the background and returns at once.
func (d *WebSocketDialer) Dial(url string, events ChannelEvents) Channel {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &wsChannel{
		cancel:       cancel,
		writeTimeout: d.WriteTimeout,
	}
	if ch.writeTimeout <= 0 {
		ch.writeTimeout = defaultWriteTimeout
	}
	go ch.run(ctx, d, url, events)
	return ch
}

func (d *WebSocketDialer) dialer() *websocket.Dialer {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	wd := &websocket.Dialer{HandshakeTimeout: timeout}
	if d.Token != "" {
		wd.Subprotocols = []string{AuthSubprotocol, d.Token}
	}
	return wd
}

type wsChannel struct {
	cancel       context.CancelFunc
	writeTimeout time.Duration

	mu     sync.Mutex // guards conn, closed and every write
	conn   *websocket.Conn
	closed bool
}

func (c *wsChannel) run(ctx context.Context, d *WebSocketDialer, url string, events ChannelEvents) {
	conn, _, err := d.dialer().DialContext(ctx, url, d.Header)
	if err != nil {
		if ctx.Err() != nil {
			// cancelled by Close
			return
		}
		events.Error(fmt.Errorf("failed to connect to %s: %w", url, err))
		events.Close(CloseAbnormal, err.Error())
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	events.Open()

	stopPing := make(chan struct{})
	if d.PingInterval > 0 {
		go c.pingLoop(d.PingInterval, stopPing)
	}
	c.readPump(conn, events)
	close(stopPing)
}

func (c *wsChannel) readPump(conn *websocket.Conn, events ChannelEvents) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			conn.Close()
			if closed {
				return
			}

			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
				events.Close(ce.Code, ce.Text)
				return
			}
			events.Error(fmt.Errorf("read failed: %w", err))
			events.Close(CloseAbnormal, err.Error())
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		events.Message(data)
	}
}

func (c *wsChannel) pingLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if c.closed || c.conn == nil {
				c.mu.Unlock()
				return
			}
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// Send writes one text frame.
func (c *wsChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal-closure frame and closes the socket, or cancels the
// dial if it has not completed yet.
func (c *wsChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	if c.conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
	return c.conn.Close()
}
