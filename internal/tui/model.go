package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"tether/internal/connection"
	"tether/pkg/protocol"
)

// ModelConfig holds the configuration for creating a new TUI model
type ModelConfig struct {
	Client        GatewayClient
	UserID        string
	AssistantName string
	// Location is the timezone for rendering timestamps. If nil, times render as-is.
	Location *time.Location
	// Renderer is the Lip Gloss renderer to use for styling. Over SSH, pass the
	// renderer from wishbubbletea.MakeRenderer so colors work correctly. If nil,
	// the default renderer (local terminal) is used.
	Renderer *lipgloss.Renderer
	Logger   *log.Logger
}

// Model is the root BubbleTea model
type Model struct {
	client GatewayClient
	bridge *Bridge
	styles Styles
	logger *log.Logger

	// Sub-models. chat holds a strings.Builder and must not be copied.
	chat      *ChatViewModel
	sidebar   SidebarModel
	statusBar StatusBarModel
	input     textarea.Model

	width    int
	height   int
	quitting bool

	// Current reply in flight
	turnTools   []ToolActivityInfo
	turnStarted time.Time
}

// NewModel creates the root TUI model and subscribes it to the client's
// events. The client must not be shared with another subscriber.
func NewModel(config ModelConfig) Model {
	r := config.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	styles := NewStyles(r)

	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ti := textarea.New()
	ti.Placeholder = "Type a message... (Enter to send, Alt+Enter for new line)"
	ti.ShowLineNumbers = false
	ti.SetHeight(3)
	ti.SetWidth(80)
	ti.Focus()
	ti.CharLimit = 4000
	ti.Cursor.SetChar("█")
	ti.Cursor.Style = styles.WhiteCursor
	ti.Cursor.Blink = false // blinking misbehaves over SSH

	assistantName := config.AssistantName
	if assistantName == "" {
		assistantName = "Assistant"
	}
	chat := NewChatViewModel(styles, assistantName, config.Location)
	chat.UserName = config.UserID

	statusBar := NewStatusBarModel(styles)
	sidebar := NewSidebarModel(styles)
	sidebar.UserID = config.UserID
	statusBar.State = config.Client.State()
	statusBar.Countdown = config.Client.Reconnect()
	statusBar.GatewayURL = config.Client.URL()
	sidebar.State = statusBar.State
	sidebar.Countdown = statusBar.Countdown
	sidebar.GatewayURL = statusBar.GatewayURL

	return Model{
		client:    config.Client,
		bridge:    NewBridge(config.Client),
		styles:    styles,
		logger:    logger,
		chat:      &chat,
		sidebar:   sidebar,
		statusBar: statusBar,
		input:     ti,
	}
}

// Init subscribes to connection events and starts the first dial.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.bridge.ListenCmd(),
		m.bridge.ConnectCmd(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case tea.KeyMsg:
		cmd, handled := m.handleKeyMsg(msg)
		if m.quitting {
			return m, tea.Quit
		}
		if handled {
			return m, cmd
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case StateMsg:
		m.handleStateChange(msg.StateChange)

	case CountdownMsg:
		m.statusBar.Countdown = msg.ReconnectContext
		m.sidebar.Countdown = msg.ReconnectContext

	case ClosedMsg:
		ev := msg.CloseEvent
		m.sidebar.LastClose = &ev
		if !ev.Solicited {
			text := fmt.Sprintf("Disconnected (%d)", ev.Code)
			if ev.Reason != "" {
				text = fmt.Sprintf("Disconnected (%d): %s", ev.Code, ev.Reason)
			}
			m.chat.AddMessage("system", text)
		}
		if m.chat.Streaming {
			m.chat.EndStreaming("", m.turnTools)
			m.resetTurn()
		}

	case ConnErrorMsg:
		m.sidebar.LastError = msg.Err.Error()
		m.logger.Warn("connection error", "err", msg.Err)

	case ProtocolErrorMsg:
		m.logger.Error("dropped malformed message", "err", msg.Err)
		m.chat.AddMessage("error", "Ignored malformed message from gateway")

	case InboundMsg:
		if cmd := m.handleInbound(msg.Message); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case ThinkingTickMsg:
		// Advance only while waiting for the first streamed text
		if m.chat.Streaming && m.chat.StreamBuf.Len() == 0 {
			m.chat.ThinkingTick()
			cmds = append(cmds, thinkingTickCmd())
		}
	}

	// Every bridge message is answered with a fresh subscription
	switch msg.(type) {
	case StateMsg, CountdownMsg, ClosedMsg, ConnErrorMsg, ProtocolErrorMsg, InboundMsg:
		cmds = append(cmds, m.bridge.ListenCmd())
	}

	var tiCmd tea.Cmd
	m.input, tiCmd = m.input.Update(msg)
	if tiCmd != nil {
		cmds = append(cmds, tiCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleStateChange(sc connection.StateChange) {
	m.statusBar.State = sc.To
	m.sidebar.State = sc.To
	m.statusBar.Countdown = m.client.Reconnect()
	m.sidebar.Countdown = m.statusBar.Countdown

	switch sc.To {
	case connection.StateOpen:
		m.sidebar.ConnectedAt = time.Now()
		m.sidebar.LastError = ""
		m.chat.AddMessage("system", "Connected to gateway.")
	case connection.StateConnecting:
		m.logger.Debug("connecting", "url", m.client.URL())
	}
}

// handleInbound renders one server envelope.
func (m *Model) handleInbound(msg protocol.Message) tea.Cmd {
	m.logger.Debug("inbound", "type", msg.Type, "correlationId", msg.CorrelationID)

	switch p := msg.Payload.(type) {
	case protocol.ThinkingPayload:
		if !m.chat.Streaming {
			m.startTurn()
			return thinkingTickCmd()
		}

	case protocol.AssistantResponsePayload:
		if p.Model != "" {
			m.statusBar.Model = p.Model
			m.sidebar.Model = p.Model
		}
		if !p.Done {
			if !m.chat.Streaming {
				m.startTurn()
			}
			m.chat.AppendDelta(p.Content)
			return nil
		}
		m.sidebar.PromptTokens += p.PromptTokens
		m.sidebar.CompletionTokens += p.CompletionTokens
		m.finishTurn(p.Content)

	case protocol.ResponsePayload:
		m.finishTurn(p.Content)

	case protocol.ErrorPayload:
		if m.chat.Streaming {
			m.finishTurn("")
		}
		text := "Error: " + p.Message
		if p.Code != "" {
			text = fmt.Sprintf("Error [%s]: %s", p.Code, p.Message)
		}
		m.chat.AddMessage("error", text)

	case protocol.SystemPayload:
		m.chat.AddMessage("system", p.Message)

	case protocol.ToolCallStartPayload:
		m.trackTool(toolStarted(p))

	case protocol.ToolCallResultPayload:
		m.trackTool(toolFinished(p))

	case protocol.ServerInfoPayload:
		m.sidebar.ServerName = p.Name
		m.sidebar.ServerVersion = p.Version
		m.sidebar.ServerTools = p.Tools
		if p.Model != "" {
			m.statusBar.Model = p.Model
			m.sidebar.Model = p.Model
		}

	case protocol.CommandResultPayload:
		role := "system"
		if !p.Success {
			role = "error"
		}
		out := p.Output
		if out == "" {
			out = p.Command + " done"
		}
		m.chat.AddMessage(role, out)
	}

	m.sidebar.MessageCount = len(m.chat.Messages)
	return nil
}

func (m *Model) startTurn() {
	m.chat.StartStreaming()
	if m.turnStarted.IsZero() {
		m.turnStarted = time.Now()
	}
}

func (m *Model) finishTurn(content string) {
	m.chat.EndStreaming(content, m.turnTools)
	if !m.turnStarted.IsZero() {
		m.sidebar.LastResponseTime = time.Since(m.turnStarted)
	}
	m.resetTurn()
}

func (m *Model) resetTurn() {
	m.turnTools = nil
	m.turnStarted = time.Time{}
}

func (m *Model) trackTool(info ToolActivityInfo) {
	m.turnTools = updateToolList(m.turnTools, info)
	m.sidebar.ActiveTools = updateToolList(m.sidebar.ActiveTools, info)
	m.chat.SetTurnTools(m.turnTools)
}

// handleKeyMsg processes keyboard input.
// Returns (cmd, handled) where handled=true prevents the textarea from also processing the key.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quit()
		return tea.Quit, true

	case "ctrl+r":
		return m.reconnect(), true

	case "tab":
		m.sidebar.Visible = !m.sidebar.Visible
		m.updateLayout()
		return nil, true

	case "shift+tab":
		m.sidebar.CycleTab()
		return nil, true

	case "pgup":
		m.chat.Viewport.HalfViewUp()
		return nil, true

	case "pgdown":
		m.chat.Viewport.HalfViewDown()
		return nil, true

	case "alt+enter":
		m.input.InsertString("\n")
		return nil, true

	case "enter":
		return m.submit(m.input.Value()), true
	}

	return nil, false
}

// submit routes one line of input. The input is kept when the message
// could not be sent so it can be retried.
func (m *Model) submit(text string) tea.Cmd {
	routed := RouteInput(text)

	switch routed.Action {
	case ActionNone:
		return nil

	case ActionQuit:
		m.quit()
		return tea.Quit

	case ActionHelp:
		m.input.Reset()
		m.chat.AddMessage("system", helpText)

	case ActionClear:
		m.input.Reset()
		m.chat.ClearMessages()
		m.resetTurn()

	case ActionReconnect:
		m.input.Reset()
		return m.reconnect()

	case ActionUsage:
		m.chat.AddMessage("error", routed.Notice)

	case ActionSend:
		if !m.client.IsConnected() {
			m.chat.AddMessage("error", "Not connected, message not sent")
			return nil
		}
		if err := m.client.Send(routed.Message); err != nil {
			m.chat.AddMessage("error", "Failed to send: "+err.Error())
			return nil
		}
		m.input.Reset()

		line := strings.TrimSpace(text)
		switch routed.Message.Type {
		case protocol.TypeUserMessage:
			m.chat.AddMessage("system", line)
		default:
			m.chat.AddMessage("user", line)
		}
		if routed.Message.Type == protocol.TypePrompt {
			m.resetTurn()
			m.startTurn()
			return thinkingTickCmd()
		}
	}

	m.sidebar.MessageCount = len(m.chat.Messages)
	return nil
}

func (m *Model) reconnect() tea.Cmd {
	if m.client.IsConnected() {
		m.chat.AddMessage("system", "Already connected.")
		return nil
	}
	m.chat.AddMessage("system", "Reconnecting...")
	return m.bridge.ConnectCmd()
}

func (m *Model) quit() {
	m.quitting = true
	m.client.Disconnect()
}

// updateLayout recalculates sub-model dimensions
func (m *Model) updateLayout() {
	statusBarHeight := 1
	inputHeight := 4 // textarea + border

	chatWidth := m.width - m.sidebar.TotalSidebarWidth()
	chatHeight := m.height - statusBarHeight - inputHeight

	if chatWidth < 20 {
		chatWidth = 20
	}
	if chatHeight < 5 {
		chatHeight = 5
	}

	m.sidebar.Height = chatHeight
	m.statusBar.Width = m.width
	m.input.SetWidth(chatWidth - 2)
	m.chat.SetSize(chatWidth, chatHeight)
}

// View renders the entire TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var sections []string

	chatView := m.chat.View()
	if m.sidebar.Visible {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, chatView, m.sidebar.View()))
	} else {
		sections = append(sections, chatView)
	}

	sections = append(sections, m.styles.InputStyle.Width(m.width).Render(m.input.View()))
	sections = append(sections, m.statusBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSSHUser sets the SSH user for display in the status bar and chat view
func (m *Model) SetSSHUser(user string) {
	m.statusBar.SSHUser = user
	m.sidebar.UserID = user
	m.chat.SetUserName(user)
}

// thinkingTickCmd returns a command that fires a ThinkingTickMsg after a short delay.
func thinkingTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return ThinkingTickMsg{}
	})
}
