package statusbar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/tabula/internal/tui/theme"
)

// Level sets the colour of a status message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Model is the status bar component.
type Model struct {
	width    int
	database string
	table    string
	saved    bool
	busy     bool
	message  string
	level    Level
}

// New creates a new status bar model.
func New() Model {
	return Model{}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetDatabase shows the connected database, or "" when disconnected.
func (m *Model) SetDatabase(name string) {
	m.database = name
}

// SetTable shows the current table name and whether it is saved.
func (m *Model) SetTable(name string, saved bool) {
	m.table = name
	m.saved = saved
}

// SetBusy toggles the working indicator.
func (m *Model) SetBusy(b bool) {
	m.busy = b
}

// SetMessage sets a status message at the given level.
func (m *Model) SetMessage(level Level, msg string) {
	m.level = level
	m.message = msg
}

// Message returns the current status message.
func (m Model) Message() string {
	return m.message
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages (status bar has no interactive behavior).
func (m Model) Update(_ tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	var db string
	if m.database != "" {
		db = lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●") + " " + m.database
	} else {
		db = lipgloss.NewStyle().Foreground(theme.ColorError).Render("●") + " no database"
	}

	tbl := m.table
	if tbl == "" {
		tbl = "(untitled)"
	}
	if !m.saved {
		tbl += lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(" *")
	}
	left := db + "  " + theme.StyleMuted.Render("table:") + " " + tbl
	if m.busy {
		left += "  " + theme.StyleWarning.Render("working...")
	}

	right := theme.StyleMuted.Render("Tab: switch pane │ help │ exit")
	if m.message != "" {
		right = m.messageStyle().Render(m.message)
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if padding < 1 {
		padding = 1
	}

	return style.Render(left + strings.Repeat(" ", padding) + right)
}

func (m Model) messageStyle() lipgloss.Style {
	switch m.level {
	case LevelSuccess:
		return theme.StyleSuccess
	case LevelWarning:
		return theme.StyleWarning
	case LevelError:
		return theme.StyleError
	default:
		return lipgloss.NewStyle()
	}
}
