package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/tabula/internal/app"
	"github.com/joacominatel/tabula/internal/tui/theme"
)

// commandHeight is the inner height of the command box: prompt label,
// input and completion hint.
const commandHeight = 3

func explorerWidth(total int) int {
	return min(max(total/4, 22), 35)
}

// contentHeight is the inner height of the content box: the window less
// the status bar, the command box with its border and the content border.
func contentHeight(total int) int {
	return max(total-1-(commandHeight+2)-2, 3)
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	ew := explorerWidth(m.width)
	rightInner := m.width - ew - 2
	ch := contentHeight(m.height)

	m.explorer.SetSize(ew-2, m.height-1-2)
	m.grid.SetSize(rightInner, ch)
	// one line for the info title
	m.info.Width = rightInner
	m.info.Height = max(ch-1, 1)
	m.cmdline.SetWidth(rightInner)
	m.statusbar.SetWidth(m.width)
}

// View renders the explorer on the left, the content and command boxes on
// the right and the status bar below.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting tabula..."
	}

	ew := explorerWidth(m.width)
	rightWidth := m.width - ew
	ch := contentHeight(m.height)

	explorerView := border(m.activePane == PaneExplorer).
		Width(ew - 2).
		Height(m.height - 1 - 2).
		Render(m.explorer.View())

	var body string
	if m.content == viewInfo {
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.StyleTitle.Padding(0, 1).Render(m.infoTitle),
			m.info.View(),
		)
	} else {
		body = m.grid.View()
	}
	contentView := border(m.activePane == PaneContent).
		Width(rightWidth - 2).
		Height(ch).
		Render(body)

	commandView := border(m.activePane == PaneCommand).
		Width(rightWidth - 2).
		Height(commandHeight).
		Render(m.cmdline.View())

	right := lipgloss.JoinVertical(lipgloss.Left, contentView, commandView)
	mainArea := lipgloss.JoinHorizontal(lipgloss.Top, explorerView, right)
	return lipgloss.JoinVertical(lipgloss.Left, mainArea, m.statusbar.View())
}

func border(active bool) lipgloss.Style {
	if active {
		return theme.StyleActiveBorder
	}
	return theme.StyleBorder
}

// showHelp lists every command in the info panel.
func (m *Model) showHelp() {
	t := newReport("Command", "Description")
	for _, h := range app.Help() {
		t.Row(h.Command, h.Description)
	}
	keys := theme.StyleMuted.Render(
		"Tab completes commands or switches panes. Esc returns to the command line.\n" +
			"In the table: arrows move, c copies the cell, y copies the row.\n" +
			"Hide this message with: set hide_instructions on")
	m.showInfo("Commands", t.Render()+"\n\n"+keys)
}
