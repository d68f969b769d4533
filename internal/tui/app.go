// Package tui is the bubbletea front end: a command line with prompts, the
// table grid, an explorer panel and a status bar.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/tabula/internal/app"
	"github.com/joacominatel/tabula/internal/config"
	"github.com/joacominatel/tabula/internal/logging"
	"github.com/joacominatel/tabula/internal/table"
	"github.com/joacominatel/tabula/internal/tui/cmdline"
	"github.com/joacominatel/tabula/internal/tui/explorer"
	"github.com/joacominatel/tabula/internal/tui/grid"
	"github.com/joacominatel/tabula/internal/tui/statusbar"
)

// Pane identifies a focusable area.
type Pane int

const (
	PaneCommand Pane = iota
	PaneContent
	PaneExplorer
)

func (p Pane) String() string {
	switch p {
	case PaneCommand:
		return "command"
	case PaneContent:
		return "content"
	case PaneExplorer:
		return "explorer"
	default:
		return "unknown"
	}
}

// contentView selects what the main pane shows.
type contentView int

const (
	viewGrid contentView = iota
	viewInfo
)

// Options sets up the initial state of the model.
type Options struct {
	// Table is the table to start with; a new empty one when nil.
	Table *table.Table
	// TableName names the starting table.
	TableName string
	// Notice is shown in the status bar on start.
	Notice string
}

// Model is the top-level bubbletea model orchestrating all components.
type Model struct {
	ctx     context.Context
	service *app.Service
	cfg     *config.Config

	tbl *table.Table
	// rev counts in-memory changes so background results that were taken
	// from an older snapshot do not mark a newer table saved.
	rev int

	grid      grid.Model
	explorer  explorer.Model
	cmdline   cmdline.Model
	statusbar statusbar.Model
	info      viewport.Model
	infoTitle string

	content    contentView
	activePane Pane
	prompt     *prompt
	busy       bool

	tableNames    []string
	databaseNames []string

	width  int
	height int
}

// NewModel creates the top-level model. ctx carries the logging session
// and is the parent of every background operation.
func NewModel(ctx context.Context, service *app.Service, cfg *config.Config, opts Options) Model {
	tbl := opts.Table
	if tbl == nil {
		tbl = table.New(opts.TableName)
	} else if opts.TableName != "" && opts.TableName != tbl.Name() {
		tbl.Rename(opts.TableName)
	}

	m := Model{
		ctx:       ctx,
		service:   service,
		cfg:       cfg,
		tbl:       tbl,
		grid:      grid.New(),
		explorer:  explorer.New(),
		cmdline:   cmdline.New(),
		statusbar: statusbar.New(),
		info:      viewport.New(0, 0),
	}
	m.cmdline.SetCandidates(app.Phrases())
	m.explorer.SetConnections(m.connectionNames())
	m.setFocus(PaneCommand)

	if opts.Table != nil {
		m.grid.SetTable(tbl)
	}
	if cfg.Settings.HideInstructions {
		m.content = viewGrid
	} else {
		m.showHelp()
	}
	if opts.Notice != "" {
		m.statusbar.SetMessage(statusbar.LevelSuccess, opts.Notice)
	}
	m.syncStatus()
	return m
}

// Init starts the cursor blink and fills the explorer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshCmd())
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(asyncMsg); ok {
		m.setBusy(false)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.activePane == PaneCommand && m.cmdline.Complete() {
				return m, nil
			}
			m.cyclePane(1)
			return m, nil
		case "shift+tab":
			m.cyclePane(-1)
			return m, nil
		case "esc":
			if m.activePane != PaneCommand {
				m.setFocus(PaneCommand)
				return m, nil
			}
		}
		return m.updateFocused(msg)

	case cmdline.SubmitMsg:
		return m.submit(msg.Value)

	case cmdline.CancelMsg:
		if m.prompt != nil {
			m.endPrompt()
			m.warn("Cancelled")
		}
		return m, nil

	case explorer.OpenMsg:
		return m.openFromExplorer(msg)

	case grid.CopiedMsg:
		if msg.Err != nil {
			m.fail(msg.Err)
		} else {
			m.success("Copied " + msg.What + ": " + truncateStatus(msg.Text, 40))
		}
		return m, nil

	case tableLoadedMsg:
		return m.onTableLoaded(msg)
	case tableSavedMsg:
		return m.onTableSaved(msg)
	case fileSavedMsg:
		return m.onFileSaved(msg)
	case listedMsg:
		return m.onListed(msg)
	case connectedMsg:
		return m.onConnected(msg)
	case doneMsg:
		return m.onDone(msg)
	case configSavedMsg:
		return m.onConfigSaved(msg)
	case refreshedMsg:
		return m.onRefreshed(msg)
	}

	// cursor blink and other component messages
	var cmd tea.Cmd
	m.cmdline, cmd = m.cmdline.Update(msg)
	return m, cmd
}

func (m Model) updateFocused(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activePane {
	case PaneCommand:
		m.cmdline, cmd = m.cmdline.Update(msg)
	case PaneContent:
		if m.content == viewInfo {
			m.info, cmd = m.info.Update(msg)
		} else {
			m.grid, cmd = m.grid.Update(msg)
		}
	case PaneExplorer:
		m.explorer, cmd = m.explorer.Update(msg)
	}
	return m, cmd
}

// submit handles a line from the command line: a prompt answer when a
// prompt is open, a command otherwise.
func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	if p := m.prompt; p != nil {
		m.endPrompt()
		cmd := p.handle(&m, strings.TrimSpace(line))
		return m, cmd
	}
	if strings.TrimSpace(line) == "" {
		return m, nil
	}

	c, err := app.ParseCommand(line)
	if err != nil {
		m.fail(err)
		return m, nil
	}
	cmd := m.execute(c)
	return m, cmd
}

func (m Model) openFromExplorer(msg explorer.OpenMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		m.warn("Answer or cancel (Esc) the prompt first")
		return m, nil
	}
	var c app.Command
	switch msg.Kind {
	case explorer.NodeDatabase:
		c = app.Command{Kind: app.CmdSelectDatabase, Arg: msg.Name}
	case explorer.NodeTable:
		c = app.Command{Kind: app.CmdLoadTable, Arg: msg.Name}
	case explorer.NodeConnection:
		c = app.Command{Kind: app.CmdConnect, Arg: msg.Name}
	default:
		return m, nil
	}
	m.setFocus(PaneCommand)
	cmd := m.execute(c)
	return m, cmd
}

func (m *Model) cyclePane(step int) {
	panes := []Pane{PaneCommand, PaneContent, PaneExplorer}
	next := (int(m.activePane) + step + len(panes)) % len(panes)
	m.setFocus(panes[next])
}

func (m *Model) setFocus(p Pane) {
	m.activePane = p
	m.cmdline.SetFocused(p == PaneCommand)
	m.grid.SetFocused(p == PaneContent && m.content == viewGrid)
	m.explorer.SetFocused(p == PaneExplorer)
}

func (m *Model) setBusy(b bool) {
	m.busy = b
	m.statusbar.SetBusy(b)
}

// syncStatus mirrors table and connection state into the status bar.
func (m *Model) syncStatus() {
	m.statusbar.SetDatabase(m.service.DatabaseName())
	m.statusbar.SetTable(m.tbl.Name(), m.tbl.Saved())
}

// dirty reports whether exiting or replacing the table loses work.
func (m *Model) dirty() bool {
	return !m.tbl.Saved() && m.tbl.NumColumns() > 0
}

// setTable replaces the current table and prints it.
func (m *Model) setTable(t *table.Table) {
	m.tbl = t
	m.rev++
	m.printTable()
	m.explorer.SetTables(m.tableNames, t.Name())
	m.syncStatus()
}

// changed runs after every successful table mutation: it refreshes the
// grid when autoprint is on and saves to the store when auto-update is on.
func (m *Model) changed() tea.Cmd {
	m.rev++
	m.syncStatus()
	if m.cfg.Settings.AutoprintTable {
		m.printTable()
	}
	if !m.cfg.Settings.AutoUpdate || !m.service.Connected() {
		return nil
	}
	if m.tbl.NumColumns() == 0 || strings.TrimSpace(m.tbl.Name()) == "" {
		return nil
	}
	if m.busy {
		m.warn("Auto update skipped: another operation is running")
		return nil
	}
	return m.saveTableCmd(app.SaveOptions{OnConflict: app.Overwrite}, true)
}

func (m *Model) printTable() {
	m.grid.SetTable(m.tbl)
	m.content = viewGrid
	m.setFocus(m.activePane)
}

func (m *Model) showInfo(title, body string) {
	m.infoTitle = title
	m.info.SetContent(body)
	m.info.GotoTop()
	m.content = viewInfo
	m.setFocus(m.activePane)
}

func (m *Model) success(text string) {
	m.statusbar.SetMessage(statusbar.LevelSuccess, text)
}

func (m *Model) note(text string) {
	m.statusbar.SetMessage(statusbar.LevelInfo, text)
}

func (m *Model) warn(text string) {
	m.statusbar.SetMessage(statusbar.LevelWarning, text)
}

func (m *Model) fail(err error) {
	logging.FromContext(m.ctx).Warn("command failed", "err", err)
	m.statusbar.SetMessage(statusbar.LevelError, err.Error())
}

func (m Model) connectionNames() []string {
	names := make([]string, len(m.cfg.Connections))
	for i, c := range m.cfg.Connections {
		names[i] = c.Name
	}
	return names
}

func truncateStatus(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\t", " ")
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
