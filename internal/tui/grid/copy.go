package grid

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

var errNothingSelected = errors.New("nothing selected")

// CellText returns the value under the cursor.
func (m Model) CellText() (string, bool) {
	if m.cursorY < 0 || m.cursorY >= len(m.cells) {
		return "", false
	}
	row := m.cells[m.cursorY]
	if m.cursorX < 0 || m.cursorX >= len(row) {
		return "", false
	}
	return row[m.cursorX], true
}

// RowText returns the row under the cursor as tab-separated values.
func (m Model) RowText() (string, bool) {
	if m.cursorY < 0 || m.cursorY >= len(m.cells) {
		return "", false
	}
	return strings.Join(m.cells[m.cursorY], "\t"), true
}

// CopyCell copies the value under the cursor to the clipboard.
func (m Model) CopyCell() tea.Cmd {
	text, ok := m.CellText()
	return copyCmd("cell", text, ok)
}

// CopyRow copies the row under the cursor to the clipboard.
func (m Model) CopyRow() tea.Cmd {
	text, ok := m.RowText()
	return copyCmd("row", text, ok)
}

func copyCmd(what, text string, ok bool) tea.Cmd {
	return func() tea.Msg {
		if !ok {
			return CopiedMsg{What: what, Err: errNothingSelected}
		}
		if err := writeClipboard(text); err != nil {
			return CopiedMsg{What: what, Err: err}
		}
		return CopiedMsg{What: what, Text: text}
	}
}
