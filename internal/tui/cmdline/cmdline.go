// Package cmdline is the single-line command and prompt input with
// history and tab completion.
package cmdline

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/tabula/internal/tui/theme"
)

// SubmitMsg is sent when the user presses Enter.
type SubmitMsg struct {
	Value string
}

// CancelMsg is sent when the user presses Esc outside completion.
type CancelMsg struct{}

const defaultPrompt = "tabula> "

// Model is the command line component.
type Model struct {
	input   textinput.Model
	width   int
	focused bool
	label   string

	history []string
	histPos int

	candidates  []string
	completing  bool
	completions []string
	compIndex   int
	compBase    string
}

// New creates a new command line.
func New() Model {
	ti := textinput.New()
	ti.Prompt = defaultPrompt
	ti.Placeholder = "type a command, or 'help'"
	ti.CharLimit = 0
	ti.PromptStyle = lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(theme.ColorMuted)

	return Model{input: ti}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
	m.input.Width = max(w-lipgloss.Width(m.input.Prompt)-2, 10)
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// Focused returns whether the command line has focus.
func (m Model) Focused() bool {
	return m.focused
}

// Value returns the current input.
func (m Model) Value() string {
	return m.input.Value()
}

// SetValue replaces the input and moves the cursor to the end.
func (m *Model) SetValue(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
	m.cancelCompletion()
}

// Prompt switches to prompt mode: label is shown above the input and
// candidates drive completion. An empty label returns to command mode.
func (m *Model) Prompt(label string, candidates []string) {
	m.label = label
	m.candidates = candidates
	if label == "" {
		m.input.Prompt = defaultPrompt
	} else {
		m.input.Prompt = "> "
	}
	m.SetWidth(m.width)
	m.Reset()
}

// Prompting reports whether a prompt label is active.
func (m Model) Prompting() bool {
	return m.label != ""
}

// SetCandidates replaces the completion candidates.
func (m *Model) SetCandidates(c []string) {
	m.candidates = c
}

// Reset empties the input.
func (m *Model) Reset() {
	m.input.Reset()
	m.cancelCompletion()
	m.histPos = len(m.history)
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command line.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			value := m.input.Value()
			if !m.Prompting() && strings.TrimSpace(value) != "" {
				m.remember(value)
			}
			m.Reset()
			return m, func() tea.Msg { return SubmitMsg{Value: value} }

		case "esc":
			if m.completing {
				m.input.SetValue(m.compBase)
				m.input.CursorEnd()
				m.cancelCompletion()
				return m, nil
			}
			m.Reset()
			return m, func() tea.Msg { return CancelMsg{} }

		case "up":
			if !m.Prompting() {
				m.recall(-1)
			}
			return m, nil

		case "down":
			if !m.Prompting() {
				m.recall(1)
			}
			return m, nil

		case "ctrl+u":
			m.Reset()
			return m, nil
		}

		if m.completing && key.String() != "tab" {
			m.cancelCompletion()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
	}
	m.histPos = len(m.history)
}

func (m *Model) recall(step int) {
	pos := m.histPos + step
	if pos < 0 || pos > len(m.history) {
		return
	}
	m.histPos = pos
	if pos == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[pos])
	}
	m.input.CursorEnd()
}

// Complete applies or cycles a completion of the whole input against the
// candidates. It returns false when nothing matches, so the caller can use
// Tab for something else.
func (m *Model) Complete() bool {
	if m.completing && len(m.completions) > 0 {
		m.compIndex = (m.compIndex + 1) % len(m.completions)
		m.applyCompletion()
		return true
	}

	base := m.input.Value()
	if strings.TrimSpace(base) == "" {
		return false
	}
	matches := Matches(m.candidates, base)
	if len(matches) == 0 {
		return false
	}

	m.completing = true
	m.completions = matches
	m.compIndex = 0
	m.compBase = base
	m.applyCompletion()
	return true
}

// Matches returns the candidates that start with input, ignoring case and
// repeated spaces. Exact matches are skipped.
func Matches(candidates []string, input string) []string {
	prefix := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if strings.HasSuffix(input, " ") {
		prefix += " "
	}
	var out []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if lc != prefix && strings.HasPrefix(lc, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Model) applyCompletion() {
	m.input.SetValue(m.completions[m.compIndex])
	m.input.CursorEnd()
}

func (m *Model) cancelCompletion() {
	m.completing = false
	m.completions = nil
	m.compIndex = 0
	m.compBase = ""
}

// View renders the command line.
func (m Model) View() string {
	var b strings.Builder
	if m.label != "" {
		b.WriteString(theme.StyleTitle.Render(m.label))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())

	if m.completing && len(m.completions) > 1 {
		hint := make([]string, 0, len(m.completions))
		for i, c := range m.completions {
			if i == m.compIndex {
				hint = append(hint, theme.StyleSelected.Render(c))
			} else {
				hint = append(hint, theme.StyleMuted.Render(c))
			}
		}
		b.WriteString("\n")
		b.WriteString(theme.StyleMuted.Render("Tab: ") + strings.Join(hint, " │ "))
	}
	return b.String()
}
