package connection

import (
	"time"

	"github.com/charmbracelet/log"
)

// Option configures a Client.
type Option func(*Client)

// WithHandlers sets the initial subscriber callbacks.
func WithHandlers(h Handlers) Option {
	return func(c *Client) {
		c.handlers.store(h)
	}
}

// WithReconnect enables or disables automatic reconnection (default enabled).
func WithReconnect(enabled bool) Option {
	return func(c *Client) {
		c.shouldReconnect = enabled
	}
}

// WithReconnectDelay sets the countdown length in seconds (default 5).
func WithReconnectDelay(seconds int) Option {
	return func(c *Client) {
		c.reconnectDelay = seconds
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithScheduler replaces the ticker used for the countdown and heartbeats.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) {
		c.scheduler = s
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithHeartbeat sends a heartbeat envelope every interval while open.
// Zero disables heartbeats.
func WithHeartbeat(interval time.Duration) Option {
	return func(c *Client) {
		c.heartbeat = interval
	}
}
