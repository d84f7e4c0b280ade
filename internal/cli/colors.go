package cli

import "charm.land/lipgloss/v2"

var (
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	plainStyle  = lipgloss.NewStyle()
)

// stateDisplay returns the symbol and style used to render an agent status.
func stateDisplay(status string) (symbol string, style lipgloss.Style) {
	switch status {
	case "pending":
		return "◯", yellowStyle
	case "running":
		return "⟳", yellowStyle
	case "idle":
		return "·", dimStyle
	case "completed":
		return "✓", greenStyle
	case "failed":
		return "✗", redStyle
	case "shutdown":
		return "⊘", dimStyle
	default:
		return "◯", plainStyle
	}
}
