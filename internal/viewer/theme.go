package viewer

import "github.com/charmbracelet/lipgloss"

// Theme holds the lipgloss styles used to render the liveness dashboard.
type Theme struct {
	Header   lipgloss.Style
	Counts   lipgloss.Style
	RowOK    lipgloss.Style
	RowWarn  lipgloss.Style
	RowFail  lipgloss.Style
	RowStale lipgloss.Style
	RowDead  lipgloss.Style
	TailLine lipgloss.Style
}

// DefaultTheme mirrors a simple, readable terminal palette: green for
// healthy, yellow for degraded, red for failing, gray for stale/dead/tail.
func DefaultTheme() Theme {
	return Theme{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),

		Counts: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		RowOK: lipgloss.NewStyle().
			Foreground(lipgloss.Color("76")),

		RowWarn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")),

		RowFail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		RowStale: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true),

		RowDead: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true),

		TailLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}
