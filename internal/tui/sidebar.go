package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tether/internal/connection"
)

// SidebarTab represents the active tab in the sidebar
type SidebarTab int

const (
	SidebarTabConnection SidebarTab = iota
	SidebarTabTools
	SidebarTabSession
)

var sidebarTabs = []string{"Connection", "Tools", "Session"}

// SidebarModel manages the information sidebar
type SidebarModel struct {
	ActiveTab SidebarTab
	Width     int
	Height    int
	Visible   bool
	Styles    Styles

	// Connection
	State       connection.State
	Countdown   connection.ReconnectContext
	GatewayURL  string
	ConnectedAt time.Time
	LastClose   *connection.CloseEvent
	LastError   string

	// Gateway metadata (from server_info)
	ServerName    string
	ServerVersion string
	ServerTools   []string

	// Session
	UserID           string
	MessageCount     int
	Model            string
	PromptTokens     int
	CompletionTokens int
	LastResponseTime time.Duration

	// Tool activity
	ActiveTools []ToolActivityInfo
}

// NewSidebarModel creates a new sidebar
func NewSidebarModel(styles Styles) SidebarModel {
	return SidebarModel{
		ActiveTab: SidebarTabConnection,
		Width:     40,
		Visible:   false,
		Styles:    styles,
	}
}

// CycleTab cycles to the next sidebar tab
func (s *SidebarModel) CycleTab() {
	s.ActiveTab = (s.ActiveTab + 1) % SidebarTab(len(sidebarTabs))
}

// View renders the sidebar
func (s SidebarModel) View() string {
	if !s.Visible {
		return ""
	}

	var sb strings.Builder

	var tabLine []string
	for i, tab := range sidebarTabs {
		if SidebarTab(i) == s.ActiveTab {
			tabLine = append(tabLine, s.Styles.SidebarTabActive.Render(tab))
		} else {
			tabLine = append(tabLine, s.Styles.SidebarTabInactive.Render(tab))
		}
	}
	sb.WriteString(strings.Join(tabLine, " | "))
	sb.WriteString("\n\n")

	switch s.ActiveTab {
	case SidebarTabConnection:
		sb.WriteString(s.renderConnectionTab())
	case SidebarTabTools:
		sb.WriteString(s.renderToolsTab())
	case SidebarTabSession:
		sb.WriteString(s.renderSessionTab())
	}

	return s.Styles.SidebarBorder.
		Width(s.Width).
		Height(s.Height).
		Render(sb.String())
}

// truncate shortens v to fit the sidebar after pad columns of label.
func (s SidebarModel) truncate(v string, pad int) string {
	if limit := s.Width - pad; limit > 3 && len(v) > limit {
		return v[:limit-3] + "..."
	}
	return v
}

func (s SidebarModel) renderConnectionTab() string {
	var sb strings.Builder

	sb.WriteString(s.Styles.SidebarTitle.Render("Connection"))
	sb.WriteString("\n")

	switch {
	case s.State == connection.StateOpen:
		sb.WriteString(s.Styles.StatusConnected.Render("* Connected"))
	case s.State == connection.StateConnecting:
		sb.WriteString(s.Styles.StatusConnecting.Render("~ Connecting"))
	case s.Countdown.Pending:
		sb.WriteString(s.Styles.StatusReconnecting.Render(fmt.Sprintf("~ Retry in %ds", s.Countdown.RemainingSeconds)))
	default:
		sb.WriteString(s.Styles.StatusDisconnected.Render("x Disconnected"))
	}
	sb.WriteString("\n")

	if s.GatewayURL != "" {
		sb.WriteString(fmt.Sprintf("URL: %s\n", s.truncate(s.GatewayURL, 9)))
	}
	if s.State == connection.StateOpen && !s.ConnectedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Up:  %s\n", formatDuration(time.Since(s.ConnectedAt))))
	}
	if s.Countdown.Attempt > 0 {
		sb.WriteString(fmt.Sprintf("Reconnect attempts: %d\n", s.Countdown.Attempt))
	}
	if !s.Countdown.ShouldReconnect {
		sb.WriteString(s.Styles.Muted.Render("Auto-reconnect off"))
		sb.WriteString("\n")
	}
	if s.LastClose != nil {
		reason := s.LastClose.Reason
		if reason == "" {
			reason = "no reason"
		}
		sb.WriteString(fmt.Sprintf("Last close: %d %s\n", s.LastClose.Code, s.truncate(reason, 20)))
	}
	if s.LastError != "" {
		sb.WriteString(s.Styles.ToolError.Render(s.truncate(s.LastError, 4)))
		sb.WriteString("\n")
	}

	if s.ServerName != "" {
		sb.WriteString("\n")
		sb.WriteString(s.Styles.SidebarTitle.Render("Gateway"))
		sb.WriteString("\n")
		name := s.ServerName
		if s.ServerVersion != "" {
			name += " " + s.ServerVersion
		}
		sb.WriteString(s.truncate(name, 4) + "\n")
		if len(s.ServerTools) > 0 {
			tools := append([]string(nil), s.ServerTools...)
			sort.Strings(tools)
			sb.WriteString(fmt.Sprintf("Tools: %d\n", len(tools)))
			for _, t := range tools {
				sb.WriteString(s.Styles.Muted.Render("  "+s.truncate(t, 6)) + "\n")
			}
		}
	}

	return sb.String()
}

func (s SidebarModel) renderSessionTab() string {
	var sb strings.Builder
	sb.WriteString(s.Styles.SidebarTitle.Render("Session"))
	sb.WriteString("\n")

	if s.UserID != "" {
		sb.WriteString(fmt.Sprintf("User:     %s\n", s.truncate(s.UserID, 14)))
	}
	sb.WriteString(fmt.Sprintf("Messages: %d\n", s.MessageCount))

	model := s.Model
	if model == "" {
		model = "(unknown)"
	}
	sb.WriteString(fmt.Sprintf("Model:    %s\n", s.truncate(model, 14)))

	sb.WriteString("\n")
	sb.WriteString(s.Styles.SidebarTitle.Render("Usage"))
	sb.WriteString("\n")
	if s.PromptTokens+s.CompletionTokens > 0 {
		sb.WriteString(fmt.Sprintf("Prompt:     %s\n", formatSidebarNumber(s.PromptTokens)))
		sb.WriteString(fmt.Sprintf("Completion: %s\n", formatSidebarNumber(s.CompletionTokens)))
	} else {
		sb.WriteString(s.Styles.Muted.Render("No usage data yet"))
		sb.WriteString("\n")
	}
	if s.LastResponseTime > 0 {
		sb.WriteString(fmt.Sprintf("Last reply: %s\n", formatResponseTime(s.LastResponseTime)))
	}

	return sb.String()
}

// formatSidebarNumber formats an integer with comma separators (e.g., 1,234,567)
func formatSidebarNumber(n int) string {
	if n < 0 {
		return "-" + formatSidebarNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

func (s SidebarModel) renderToolsTab() string {
	var sb strings.Builder
	sb.WriteString(s.Styles.SidebarTitle.Render("Tool Activity"))
	sb.WriteString("\n")

	if len(s.ActiveTools) == 0 {
		sb.WriteString(s.Styles.Muted.Render("No recent activity"))
		return sb.String()
	}

	for _, tool := range s.ActiveTools {
		sb.WriteString(renderToolDetail(tool, s.Styles, s.Width))
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderToolDetail renders a tool activity line plus a detail line for the sidebar.
func renderToolDetail(tool ToolActivityInfo, styles Styles, width int) string {
	line := renderToolActivity(tool, styles)

	// Build a detail string from args/result
	maxDetail := width - 6
	if maxDetail < 10 {
		maxDetail = 10
	}

	var detail string
	switch tool.Status {
	case "complete":
		if tool.Result != "" {
			detail = tool.Result
		} else if tool.Args != "" {
			detail = tool.Args
		}
	default:
		detail = tool.Args
	}

	if detail != "" {
		// Collapse newlines to spaces for single-line display
		detail = strings.ReplaceAll(detail, "\n", " ")
		if len(detail) > maxDetail {
			detail = detail[:maxDetail-3] + "..."
		}
		line += "\n" + styles.Muted.Render("    "+detail)
	}

	return line
}

// formatDuration formats a duration in a human-readable compact form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	if h > 0 {
		return fmt.Sprintf("%dd%dh", days, h)
	}
	return fmt.Sprintf("%dd", days)
}

// formatResponseTime formats a response time in a compact form.
func formatResponseTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// SidebarWidth returns the width of the sidebar when visible, 0 otherwise
func (s SidebarModel) SidebarWidth() int {
	if !s.Visible {
		return 0
	}
	return s.Width
}

// The sidebar border style includes a left border character, account for it
func sidebarBorderWidth() int {
	return 1 // lipgloss NormalBorder left border is 1 char
}

// TotalSidebarWidth returns the total width including border
func (s SidebarModel) TotalSidebarWidth() int {
	if !s.Visible {
		return 0
	}
	return s.Width + sidebarBorderWidth() + 2 // border + padding
}
