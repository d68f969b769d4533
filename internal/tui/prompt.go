package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/tabula/internal/app"
	"github.com/joacominatel/tabula/internal/table"
)

// answerFunc receives a trimmed prompt answer. It may open the next
// prompt by returning m.ask(...).
type answerFunc func(m *Model, answer string) tea.Cmd

type prompt struct {
	label  string
	handle answerFunc
}

// ask opens a prompt on the command line. Esc cancels it.
func (m *Model) ask(label string, candidates []string, fn answerFunc) tea.Cmd {
	m.prompt = &prompt{label: label, handle: fn}
	m.cmdline.Prompt(label, candidates)
	m.setFocus(PaneCommand)
	return nil
}

func (m *Model) endPrompt() {
	m.prompt = nil
	m.cmdline.Prompt("", app.Phrases())
}

// argOr uses the inline argument when given, otherwise asks for it.
func (m *Model) argOr(arg, label string, candidates []string, fn answerFunc) tea.Cmd {
	if arg = strings.TrimSpace(arg); arg != "" {
		return fn(m, arg)
	}
	return m.ask(label, candidates, fn)
}

// confirm asks a yes/no question and runs onYes on yes.
func (m *Model) confirm(question string, onYes func(m *Model) tea.Cmd) tea.Cmd {
	return m.ask(question+" (y/n)", []string{"yes", "no"}, func(m *Model, answer string) tea.Cmd {
		if yes(answer) {
			return onYes(m)
		}
		m.warn("Cancelled")
		return nil
	})
}

func yes(answer string) bool {
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

// askName asks for a non-empty name, asking again on a blank answer.
func (m *Model) askName(label string, candidates []string, fn answerFunc) tea.Cmd {
	var handle answerFunc
	handle = func(m *Model, answer string) tea.Cmd {
		if answer == "" {
			m.fail(app.ErrEmptyName)
			return m.ask(label, candidates, handle)
		}
		return fn(m, answer)
	}
	return m.ask(label, candidates, handle)
}

// askType asks for a column type until the answer is valid.
func (m *Model) askType(label string, fn func(m *Model, t table.Type) tea.Cmd) tea.Cmd {
	names := make([]string, len(table.Types))
	for i, t := range table.Types {
		names[i] = t.String()
	}
	full := fmt.Sprintf("%s (%s)", label, strings.Join(names, ", "))

	var handle answerFunc
	handle = func(m *Model, answer string) tea.Cmd {
		t, err := table.ParseType(answer)
		if err != nil {
			m.fail(err)
			return m.ask(full, names, handle)
		}
		return fn(m, t)
	}
	return m.ask(full, names, handle)
}

// askColumn asks for an existing column and passes its index.
func (m *Model) askColumn(label, arg string, fn func(m *Model, i int) tea.Cmd) tea.Cmd {
	if m.tbl.NumColumns() == 0 {
		m.fail(table.ErrNoColumns)
		return nil
	}
	return m.argOr(arg, label, m.tbl.Header(), func(m *Model, name string) tea.Cmd {
		i := m.tbl.ColumnIndex(name)
		if i < 0 {
			m.fail(fmt.Errorf("column %q: %w", name, table.ErrUnknownColumn))
			return nil
		}
		return fn(m, i)
	})
}

// askRow asks for a 1-based row number and passes the 0-based index.
func (m *Model) askRow(label, arg string, fn func(m *Model, r int) tea.Cmd) tea.Cmd {
	if m.tbl.NumRows() == 0 {
		m.warn("The table has no rows")
		return nil
	}
	full := fmt.Sprintf("%s (1-%d)", label, m.tbl.NumRows())
	return m.argOr(arg, full, nil, func(m *Model, answer string) tea.Cmd {
		r, err := parseRowNumber(answer, m.tbl.NumRows())
		if err != nil {
			m.fail(err)
			return nil
		}
		return fn(m, r)
	})
}

func parseRowNumber(s string, n int) (int, error) {
	r, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || r < 1 || r > n {
		return 0, fmt.Errorf("row %q: %w", s, table.ErrIndexOutOfRange)
	}
	return r - 1, nil
}

// askValue asks for a value for column i, asking again until it is valid
// for the column type.
func (m *Model) askValue(label string, i int, fn func(m *Model, raw string) tea.Cmd) tea.Cmd {
	col, err := m.tbl.Column(i)
	if err != nil {
		m.fail(err)
		return nil
	}
	full := fmt.Sprintf("%s %q (%s)", label, col.Name, col.Type)

	var handle answerFunc
	handle = func(m *Model, raw string) tea.Cmd {
		if _, err := m.tbl.ValidateCell(i, raw); err != nil {
			m.fail(fmt.Errorf("%w: expected %s", err, table.Expected(col.Type)))
			return m.ask(full, nil, handle)
		}
		return fn(m, raw)
	}
	return m.ask(full, nil, handle)
}

// guardUnsaved runs next directly, or after confirmation when the current
// table has unsaved changes.
func (m *Model) guardUnsaved(next func(m *Model) tea.Cmd) tea.Cmd {
	if !m.dirty() {
		return next(m)
	}
	return m.confirm(fmt.Sprintf("Table %q has unsaved changes. Discard them?", m.tbl.Name()), next)
}

func (m *Model) requireConnection() bool {
	if m.service.Connected() {
		return true
	}
	m.fail(&app.ErrNotConnected{})
	return false
}
