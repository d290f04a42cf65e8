package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"tether/internal/connection"
	"tether/pkg/protocol"
)

const inboxSize = 256

// Bridge turns connection callbacks into BubbleTea messages. The TUI
// subscribes by repeatedly running ListenCmd.
type Bridge struct {
	client GatewayClient

	// queue is unbounded and FIFO; ready holds at most one wakeup.
	mu    sync.Mutex
	queue []tea.Msg
	ready chan struct{}
}

// NewBridge installs the bridge as the client's handler set.
func NewBridge(client GatewayClient) *Bridge {
	b := &Bridge{
		client: client,
		queue:  make([]tea.Msg, 0, inboxSize),
		ready:  make(chan struct{}, 1),
	}
	client.SetHandlers(connection.Handlers{
		OnClose: func(ev connection.CloseEvent) {
			b.push(ClosedMsg{ev})
		},
		OnError: func(err error) {
			b.push(ConnErrorMsg{Err: err})
		},
		OnMessage: func(m protocol.Message) {
			b.push(InboundMsg{m})
		},
		OnProtocolError: func(err error) {
			b.push(ProtocolErrorMsg{Err: err})
		},
		OnStateChange: func(sc connection.StateChange) {
			b.push(StateMsg{sc})
		},
		OnCountdown: func(ctx connection.ReconnectContext) {
			b.push(CountdownMsg{ctx})
		},
	})
	return b
}

// push never blocks: handlers may run on the BubbleTea goroutine itself
// (Disconnect from Update), which is also the only reader of the queue.
func (b *Bridge) push(msg tea.Msg) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// next blocks until a message is queued and pops the oldest one.
func (b *Bridge) next() tea.Msg {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msg := b.queue[0]
			b.queue[0] = nil
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return msg
		}
		b.mu.Unlock()
		<-b.ready
	}
}

// ListenCmd waits for the next connection event.
func (b *Bridge) ListenCmd() tea.Cmd {
	return b.next
}

// ConnectCmd starts the connection. Connect returns at once; progress
// arrives through ListenCmd.
func (b *Bridge) ConnectCmd() tea.Cmd {
	return func() tea.Msg {
		b.client.Connect()
		return nil
	}
}
