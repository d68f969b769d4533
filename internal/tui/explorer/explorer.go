// Package explorer is the side panel listing database files, the tables of
// the connected database and saved connections.
package explorer

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/tabula/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeSection NodeKind = iota
	NodeDatabase
	NodeTable
	NodeConnection
)

// TreeNode is a single node in the explorer tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Children []*TreeNode
	Expanded bool
	Current  bool
}

// OpenMsg is sent when the user presses Enter on a leaf.
type OpenMsg struct {
	Kind NodeKind
	Name string
}

type flatItem struct {
	node  *TreeNode
	depth int
}

// Model is the explorer component.
type Model struct {
	databases   *TreeNode
	tables      *TreeNode
	connections *TreeNode
	items       []flatItem
	cursor      int
	width       int
	height      int
	focused     bool
}

// New creates a new explorer with empty sections.
func New() Model {
	m := Model{
		databases:   &TreeNode{Kind: NodeSection, Name: "Databases", Expanded: true},
		tables:      &TreeNode{Kind: NodeSection, Name: "Tables", Expanded: true},
		connections: &TreeNode{Kind: NodeSection, Name: "Connections"},
	}
	m.flatten()
	return m
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Focused returns whether the explorer has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetDatabases lists database files, marking current.
func (m *Model) SetDatabases(names []string, current string) {
	m.databases.Children = leaves(NodeDatabase, names, current)
	m.flatten()
}

// SetTables lists the tables of the connected database, marking current.
func (m *Model) SetTables(names []string, current string) {
	m.tables.Children = leaves(NodeTable, names, current)
	m.flatten()
}

// SetConnections lists saved connection profiles.
func (m *Model) SetConnections(names []string) {
	m.connections.Children = leaves(NodeConnection, names, "")
	m.flatten()
}

func leaves(kind NodeKind, names []string, current string) []*TreeNode {
	out := make([]*TreeNode, len(names))
	for i, n := range names {
		out[i] = &TreeNode{Kind: kind, Name: n, Current: n == current}
	}
	return out
}

// Selected returns the node under the cursor.
func (m Model) Selected() (*TreeNode, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil, false
	}
	return m.items[m.cursor].node, true
}

func (m *Model) flatten() {
	m.items = nil
	for _, section := range []*TreeNode{m.databases, m.tables, m.connections} {
		m.items = append(m.items, flatItem{node: section})
		if section.Expanded {
			for _, child := range section.Children {
				m.items = append(m.items, flatItem{node: child, depth: 1})
			}
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the explorer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter", "right", "l":
			return m, m.activate()
		case "left", "h":
			m.collapse()
		}
	}

	return m, nil
}

func (m *Model) activate() tea.Cmd {
	node, ok := m.Selected()
	if !ok {
		return nil
	}
	if node.Kind == NodeSection {
		node.Expanded = !node.Expanded
		m.flatten()
		return nil
	}
	open := OpenMsg{Kind: node.Kind, Name: node.Name}
	return func() tea.Msg { return open }
}

func (m *Model) collapse() {
	node, ok := m.Selected()
	if !ok {
		return
	}
	if node.Kind != NodeSection {
		// move to the parent section
		for i := m.cursor; i >= 0; i-- {
			if m.items[i].node.Kind == NodeSection {
				m.cursor = i
				node = m.items[i].node
				break
			}
		}
	}
	node.Expanded = false
	m.flatten()
}

// View renders the explorer.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Explorer"))
	b.WriteString("\n")

	visibleHeight := max(m.height-2, 1)
	scrollOffset := 0
	if m.cursor >= visibleHeight {
		scrollOffset = m.cursor - visibleHeight + 1
	}

	for i := scrollOffset; i < len(m.items) && i < scrollOffset+visibleHeight; i++ {
		if i > scrollOffset {
			b.WriteString("\n")
		}
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
	}

	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	icon := "  "
	if node.Kind == NodeSection {
		icon = "▶ "
		if node.Expanded {
			icon = "▼ "
		}
	}

	name := node.Name
	if node.Kind == NodeSection && len(node.Children) == 0 {
		name += theme.StyleMuted.Render(" (none)")
	}
	if node.Current {
		name = "● " + name
	}

	line := indent + icon + name
	if m.width > 4 && lipgloss.Width(line) > m.width-2 {
		runes := []rune(line)
		if len(runes) > m.width-4 {
			line = string(runes[:m.width-4]) + ".."
		}
	}

	switch {
	case m.focused && selected:
		return theme.StyleSelected.Render(line)
	case node.Current:
		return theme.StyleSuccess.Render(line)
	case node.Kind == NodeSection:
		return theme.StyleTitle.Render(line)
	}
	return line
}
