package explorer

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	down  = tea.KeyMsg{Type: tea.KeyDown}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	left  = tea.KeyMsg{Type: tea.KeyLeft}
)

func TestOpenLeaf(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetDatabases([]string{"hr.db", "sales.db"}, "sales.db")
	m.SetTables([]string{"people"}, "")

	// Databases, hr.db, sales.db, Tables, people
	for i := 0; i < 4; i++ {
		m, _ = m.Update(down)
	}
	m, cmd := m.Update(enter)
	if cmd == nil {
		t.Fatal("enter on a table produced no command")
	}
	open, ok := cmd().(OpenMsg)
	if !ok || open.Kind != NodeTable || open.Name != "people" {
		t.Errorf("got %+v, want OpenMsg{NodeTable people}", cmd())
	}

	m, _ = m.Update(left)
	node, _ := m.Selected()
	if node.Name != "Tables" || node.Expanded {
		t.Errorf("left should collapse to the section, at %q expanded=%v", node.Name, node.Expanded)
	}
}

func TestToggleSection(t *testing.T) {
	m := New()
	m.SetSize(30, 20)
	m.SetFocused(true)
	m.SetConnections([]string{"prod"})
	if strings.Contains(m.View(), "prod") {
		t.Error("connections section should start collapsed")
	}

	m, _ = m.Update(down)
	m, _ = m.Update(down)
	if node, _ := m.Selected(); node.Name != "Connections" {
		t.Fatalf("cursor on %q, want Connections", node.Name)
	}
	m, cmd := m.Update(enter)
	if cmd != nil {
		t.Error("toggling a section should not emit a command")
	}
	if !strings.Contains(m.View(), "prod") {
		t.Error("expanded connections section does not list prod")
	}
}

func TestCurrentMarker(t *testing.T) {
	m := New()
	m.SetSize(30, 20)
	m.SetDatabases([]string{"a.db", "b.db"}, "b.db")
	view := m.View()
	if !strings.Contains(view, "● b.db") || strings.Contains(view, "● a.db") {
		t.Errorf("current database not marked:\n%s", view)
	}
}
