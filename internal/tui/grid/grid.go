// Package grid renders a table as a scrollable, cursor-addressable grid.
package grid

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/tabula/internal/table"
	"github.com/joacominatel/tabula/internal/tui/theme"
)

const maxColWidth = 40

// Model is the table grid component. It shows a snapshot of the table
// taken when SetTable was last called.
type Model struct {
	tbl       *table.Table
	header    []string
	cells     [][]string
	colWidths []int
	width     int
	height    int
	focused   bool
	cursorX   int
	cursorY   int
	scrollX   int
	scrollY   int
}

// New creates a new grid model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.clampScroll()
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Focused returns whether the grid has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetTable replaces the displayed snapshot. The cursor is kept where it
// still fits.
func (m *Model) SetTable(t *table.Table) {
	if t == nil {
		m.tbl, m.header, m.cells, m.colWidths = nil, nil, nil, nil
		m.cursorX, m.cursorY, m.scrollX, m.scrollY = 0, 0, 0, 0
		return
	}
	m.tbl = t.Clone()

	cols := m.tbl.Columns()
	m.header = make([]string, len(cols))
	for i, c := range cols {
		m.header[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}
	m.cells = make([][]string, m.tbl.NumRows())
	for r, row := range m.tbl.Rows() {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = table.FormatValue(row[c.Name])
		}
		m.cells[r] = line
	}

	m.cursorX = clamp(m.cursorX, 0, len(cols)-1)
	m.cursorY = clamp(m.cursorY, 0, len(m.cells)-1)
	m.calculateColumnWidths()
	m.clampScroll()
}

// Table returns the displayed snapshot, or nil.
func (m Model) Table() *table.Table {
	return m.tbl
}

// Cursor returns the 0-based row and column under the cursor.
func (m Model) Cursor() (row, col int) {
	return m.cursorY, m.cursorX
}

func (m *Model) calculateColumnWidths() {
	m.colWidths = make([]int, len(m.header))
	for i, h := range m.header {
		m.colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range m.cells {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > m.colWidths[i] {
				m.colWidths[i] = w
			}
		}
	}
	for i := range m.colWidths {
		m.colWidths[i] = clamp(m.colWidths[i], 1, maxColWidth)
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles navigation and copy keys while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		m.cursorY--
	case "down", "j":
		m.cursorY++
	case "left", "h":
		m.cursorX--
	case "right", "l":
		m.cursorX++
	case "pgup":
		m.cursorY -= m.visibleRows()
	case "pgdown":
		m.cursorY += m.visibleRows()
	case "home", "g":
		m.cursorY = 0
	case "end", "G":
		m.cursorY = len(m.cells) - 1
	case "c":
		return m, m.CopyCell()
	case "y":
		return m, m.CopyRow()
	default:
		return m, nil
	}

	m.cursorX = clamp(m.cursorX, 0, len(m.header)-1)
	m.cursorY = clamp(m.cursorY, 0, len(m.cells)-1)
	m.clampScroll()
	return m, nil
}

// visibleRows is the number of data rows that fit under the title,
// header and separator.
func (m Model) visibleRows() int {
	return max(m.height-3, 1)
}

func (m *Model) clampScroll() {
	rows := m.visibleRows()
	if m.cursorY < m.scrollY {
		m.scrollY = m.cursorY
	}
	if m.cursorY >= m.scrollY+rows {
		m.scrollY = m.cursorY - rows + 1
	}
	m.scrollY = max(m.scrollY, 0)

	if m.cursorX < m.scrollX {
		m.scrollX = m.cursorX
	}
	for m.scrollX < m.cursorX && !m.columnVisible(m.cursorX) {
		m.scrollX++
	}
	m.scrollX = max(m.scrollX, 0)
}

// columnVisible reports whether column c fits when rendering starts at
// scrollX.
func (m Model) columnVisible(c int) bool {
	if m.width <= 0 {
		return true
	}
	used := m.rowNumberWidth() + 2
	for i := m.scrollX; i <= c && i < len(m.colWidths); i++ {
		used += m.colWidths[i] + 3
	}
	return used <= m.width
}

func (m Model) rowNumberWidth() int {
	return len(fmt.Sprint(len(m.cells)))
}

// View renders the grid.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	if m.tbl == nil {
		return titleStyle.Render("Table") + "\n" +
			theme.StyleMuted.Render("  Nothing printed yet. Run 'print table'.")
	}

	name := m.tbl.Name()
	if name == "" {
		name = "(untitled)"
	}
	stats := fmt.Sprintf("%d column(s) │ %d row(s)", len(m.header), len(m.cells))
	var b strings.Builder
	b.WriteString(titleStyle.Render(name) + "  " + theme.StyleMuted.Render(stats))

	if len(m.header) == 0 {
		b.WriteString("\n" + theme.StyleMuted.Render("  No columns. Run 'add column'."))
		return b.String()
	}

	last := m.lastVisibleColumn()
	b.WriteString("\n")
	b.WriteString(m.renderLine("#", m.header, -1, last, true))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator(last))

	for r := m.scrollY; r < len(m.cells) && r < m.scrollY+m.visibleRows(); r++ {
		b.WriteString("\n")
		b.WriteString(m.renderLine(fmt.Sprint(r+1), m.cells[r], r, last, false))
	}
	if len(m.cells) == 0 {
		b.WriteString("\n" + theme.StyleMuted.Render("  No rows. Run 'add row'."))
	}

	return b.String()
}

func (m Model) lastVisibleColumn() int {
	last := m.scrollX
	for last+1 < len(m.colWidths) && m.columnVisible(last+1) {
		last++
	}
	return last
}

func (m Model) renderLine(num string, cells []string, row, last int, isHeader bool) string {
	cols := m.tbl.Columns()
	numW := m.rowNumberWidth()
	parts := []string{theme.StyleMuted.Render(pad(num, numW))}

	for i := m.scrollX; i <= last && i < len(cells); i++ {
		display := pad(truncate(cells[i], m.colWidths[i]), m.colWidths[i])
		switch {
		case isHeader:
			display = theme.TypeStyle(cols[i].Type).Bold(true).Render(display)
		case m.focused && row == m.cursorY && i == m.cursorX:
			display = theme.StyleCursorCell.Render(display)
		default:
			display = theme.TypeStyle(cols[i].Type).Render(display)
		}
		parts = append(parts, display)
	}
	return "  " + strings.Join(parts, " │ ")
}

func (m Model) renderSeparator(last int) string {
	parts := []string{strings.Repeat("─", m.rowNumberWidth())}
	for i := m.scrollX; i <= last && i < len(m.colWidths); i++ {
		parts = append(parts, strings.Repeat("─", m.colWidths[i]))
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}

// truncate shortens s to width display cells, ending with an ellipsis.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
