package cmdline

import (
	"reflect"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func submit(t *testing.T, m Model) (Model, string) {
	t.Helper()
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter produced no command")
	}
	msg, ok := cmd().(SubmitMsg)
	if !ok {
		t.Fatalf("enter produced %T, want SubmitMsg", cmd())
	}
	return m, msg.Value
}

func TestMatches(t *testing.T) {
	candidates := []string{"load csv", "load csv batch", "load table", "list tables"}
	tests := []struct {
		input string
		want  []string
	}{
		{"lo", []string{"load csv", "load csv batch", "load table"}},
		{"LOAD  c", []string{"load csv", "load csv batch"}},
		{"load csv", []string{"load csv batch"}},
		{"load csv ", []string{"load csv batch"}},
		{"x", nil},
	}
	for _, tt := range tests {
		if got := Matches(candidates, tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Matches(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSubmitAndHistory(t *testing.T) {
	m := New()
	m.SetFocused(true)

	m = typeText(m, "add row")
	m, got := submit(t, m)
	if got != "add row" || m.Value() != "" {
		t.Fatalf("submitted %q, input left %q", got, m.Value())
	}
	m = typeText(m, "print table")
	m, _ = submit(t, m)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.Value() != "print table" {
		t.Errorf("first recall = %q", m.Value())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.Value() != "add row" {
		t.Errorf("second recall = %q", m.Value())
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.Value() != "" {
		t.Errorf("recall past the end = %q, want empty", m.Value())
	}
}

func TestPromptSkipsHistory(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.Prompt("Column name", nil)
	if !m.Prompting() {
		t.Fatal("Prompting() = false")
	}
	m = typeText(m, "secret")
	m, _ = submit(t, m)
	m.Prompt("", nil)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.Value() != "" {
		t.Errorf("prompt answer leaked into history: %q", m.Value())
	}
}

func TestComplete(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetCandidates([]string{"save csv", "save table", "settings"})

	if m.Complete() {
		t.Error("completion on empty input")
	}
	m = typeText(m, "sa")
	if !m.Complete() || m.Value() != "save csv" {
		t.Fatalf("first completion = %q", m.Value())
	}
	if !m.Complete() || m.Value() != "save table" {
		t.Fatalf("cycled completion = %q", m.Value())
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil || m.Value() != "sa" {
		t.Errorf("esc during completion: value %q, cmd %v", m.Value(), cmd != nil)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(CancelMsg); !ok {
		t.Error("esc outside completion should cancel")
	}
}
