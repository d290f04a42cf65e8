package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the local TUI and blocks until the user quits. The client is
// disconnected on return.
func Run(config ModelConfig) error {
	model := NewModel(config)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	config.Client.Disconnect()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
