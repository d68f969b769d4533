package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/tabula/internal/table"
)

// Palette.
var (
	ColorPrimary   = lipgloss.Color("37")  // Teal
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorBorder    = lipgloss.Color("238") // Dark gray
	ColorMuted     = lipgloss.Color("245") // Light gray
	ColorHighlight = lipgloss.Color("229") // Yellow
	ColorCursor    = lipgloss.Color("24")  // Dark blue
)

var typeColors = map[table.Type]lipgloss.Color{
	table.TypeInt:   lipgloss.Color("75"),
	table.TypeFloat: lipgloss.Color("141"),
	table.TypeStr:   lipgloss.Color("252"),
	table.TypeBool:  lipgloss.Color("180"),
}

// Shared styles used across TUI components.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleActiveBorder = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleSelected = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	StyleCursorCell = lipgloss.NewStyle().
			Background(ColorCursor).
			Foreground(lipgloss.Color("255"))

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

// TypeStyle colours a value or header by its column type.
func TypeStyle(t table.Type) lipgloss.Style {
	c, ok := typeColors[t]
	if !ok {
		c = ColorMuted
	}
	return lipgloss.NewStyle().Foreground(c)
}
