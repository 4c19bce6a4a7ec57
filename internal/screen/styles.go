package screen

import "github.com/charmbracelet/lipgloss"

const (
	accentColorCode  = "39"
	successColorCode = "42"
	errorColorCode   = "196"
	dimColorCode     = "240"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColorCode))
	counterStyle = lipgloss.NewStyle().Bold(true)
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(accentColorCode))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(successColorCode))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(errorColorCode))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(dimColorCode))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(errorColorCode))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(accentColorCode)).
			Padding(1, 2)
)
