package tui

import (
	"fmt"
	"strings"

	"tether/internal/connection"
)

// StatusBarModel manages the bottom status bar
type StatusBarModel struct {
	State      connection.State
	Countdown  connection.ReconnectContext
	GatewayURL string
	Model      string
	SSHUser    string // set for SSH sessions
	Width      int
	Styles     Styles
}

// NewStatusBarModel creates a new status bar
func NewStatusBarModel(styles Styles) StatusBarModel {
	return StatusBarModel{
		State:  connection.StateConnecting,
		Styles: styles,
	}
}

// Banner returns the connection indicator text.
func (s StatusBarModel) Banner() string {
	switch {
	case s.State == connection.StateOpen:
		return "* connected"
	case s.State == connection.StateConnecting:
		return "~ connecting..."
	case s.Countdown.Pending:
		return fmt.Sprintf("~ reconnecting in %ds (attempt %d)", s.Countdown.RemainingSeconds, s.Countdown.Attempt+1)
	default:
		return "x disconnected"
	}
}

// View renders the status bar
func (s StatusBarModel) View() string {
	var parts []string

	banner := s.Banner()
	switch {
	case s.State == connection.StateOpen:
		parts = append(parts, s.Styles.StatusConnected.Render(banner))
	case s.State == connection.StateConnecting:
		parts = append(parts, s.Styles.StatusConnecting.Render(banner))
	case s.Countdown.Pending:
		parts = append(parts, s.Styles.StatusReconnecting.Render(banner))
	default:
		parts = append(parts, s.Styles.StatusDisconnected.Render(banner))
	}

	if s.GatewayURL != "" {
		url := strings.TrimPrefix(s.GatewayURL, "ws://")
		url = strings.TrimPrefix(url, "wss://")
		if len(url) > 25 {
			url = url[:22] + "..."
		}
		parts = append(parts, s.Styles.Muted.Render(url))
	}

	if s.Model != "" {
		parts = append(parts, s.Styles.Accent.Render(s.Model))
	}

	if s.SSHUser != "" {
		parts = append(parts, s.Styles.Accent.Render(fmt.Sprintf("SSH: %s", s.SSHUser)))
	}

	content := strings.Join(parts, "  |  ")
	return s.Styles.StatusBar.Width(s.Width).Render(content)
}
