package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/tabula/internal/app"
	"github.com/joacominatel/tabula/internal/config"
	"github.com/joacominatel/tabula/internal/format"
	"github.com/joacominatel/tabula/internal/logging"
	"github.com/joacominatel/tabula/internal/table"
)

const (
	storeTimeout = 30 * time.Second
	fileTimeout  = 2 * time.Minute
)

// asyncMsg marks results of operations started with run; receiving one
// clears the busy flag.
type asyncMsg interface{ async() }

type (
	tableLoadedMsg struct {
		tbl    *table.Table
		source string
		err    error
	}
	tableSavedMsg struct {
		res  app.SaveResult
		rev  int
		auto bool
		err  error
	}
	fileSavedMsg struct {
		path string
		rev  int
		err  error
	}
	listedMsg struct {
		title   string
		body    string
		refresh bool
		err     error
	}
	connectedMsg struct {
		text string
		err  error
	}
	doneMsg struct {
		text    string
		refresh bool
		err     error
	}
	configSavedMsg struct {
		cfg  *config.Config
		text string
		err  error
	}
)

func (tableLoadedMsg) async() {}
func (tableSavedMsg) async()  {}
func (fileSavedMsg) async()   {}
func (listedMsg) async()      {}
func (connectedMsg) async()   {}
func (doneMsg) async()        {}
func (configSavedMsg) async() {}

// refreshedMsg carries explorer data. Refreshes run in the background
// without the busy flag.
type refreshedMsg struct {
	databases []string
	tables    []string
	err       error
}

// run marks the model busy and returns a command that runs fn with a
// timeout derived from the session context.
func (m *Model) run(timeout time.Duration, fn func(ctx context.Context) tea.Msg) tea.Cmd {
	m.setBusy(true)
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m *Model) importFileCmd(f format.Format, path string) tea.Cmd {
	service := m.service
	opts := format.Options{InferTypes: m.cfg.Settings.InferDataTypes}
	return m.run(fileTimeout, func(ctx context.Context) tea.Msg {
		t, err := service.ImportFile(ctx, f, path, opts)
		return tableLoadedMsg{tbl: t, source: path, err: err}
	})
}

func (m *Model) exportFileCmd(f format.Format, path string) tea.Cmd {
	service := m.service
	snapshot := m.tbl.Clone()
	rev := m.rev
	return m.run(fileTimeout, func(ctx context.Context) tea.Msg {
		err := service.ExportFile(ctx, snapshot, f, path)
		return fileSavedMsg{path: path, rev: rev, err: err}
	})
}

func (m *Model) loadTableCmd(name string) tea.Cmd {
	service := m.service
	return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
		t, err := service.LoadTable(ctx, name)
		return tableLoadedMsg{tbl: t, source: name, err: err}
	})
}

// saveTableCmd saves a snapshot of the current table. auto marks saves
// triggered by the auto_update setting.
func (m *Model) saveTableCmd(opts app.SaveOptions, auto bool) tea.Cmd {
	service := m.service
	snapshot := m.tbl.Clone()
	rev := m.rev
	return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
		res, err := service.SaveTable(ctx, snapshot, opts)
		return tableSavedMsg{res: res, rev: rev, auto: auto, err: err}
	})
}

func (m *Model) connectCmd(dsn string) tea.Cmd {
	service := m.service
	return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
		if err := service.Connect(ctx, dsn); err != nil {
			return connectedMsg{err: err}
		}
		return connectedMsg{text: "Connected to " + service.DatabaseName()}
	})
}

// connectProfileCmd resolves a saved profile's password from the keyring
// and connects.
func (m *Model) connectProfileCmd(name string) tea.Cmd {
	service := m.service
	cfg := m.cfg.Clone()
	return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
		conn, err := config.ResolveConnection(cfg, name)
		if err != nil {
			return connectedMsg{err: &app.ErrConfig{Cause: err}}
		}
		if err := service.Connect(ctx, conn.DSN()); err != nil {
			return connectedMsg{err: err}
		}
		return connectedMsg{text: fmt.Sprintf("Connected to %s (%s)", name, conn.DisplayString())}
	})
}

// saveConfigCmd persists cfg, a clone already carrying the change.
func (m *Model) saveConfigCmd(cfg *config.Config, text string) tea.Cmd {
	return m.run(storeTimeout, func(context.Context) tea.Msg {
		if err := config.Save(cfg); err != nil {
			return configSavedMsg{err: &app.ErrConfig{Cause: err}}
		}
		return configSavedMsg{cfg: cfg, text: text}
	})
}

// refreshCmd lists database files and, when connected, tables for the
// explorer.
func (m Model) refreshCmd() tea.Cmd {
	service := m.service
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, storeTimeout)
		defer cancel()

		var msg refreshedMsg
		dbs, err := service.ListDatabases()
		msg.databases = dbs
		if service.Connected() {
			tables, terr := service.ListTables(ctx)
			msg.tables = tables
			err = errors.Join(err, terr)
		}
		msg.err = err
		return msg
	}
}

func (m Model) onTableLoaded(msg tableLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	m.setTable(msg.tbl)
	m.success(fmt.Sprintf("Loaded %q from %s: %d column(s), %d row(s)",
		msg.tbl.Name(), msg.source, msg.tbl.NumColumns(), msg.tbl.NumRows()))
	return m, nil
}

func (m Model) onTableSaved(msg tableSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if name, ok := app.IsConflict(msg.err); ok {
			cmd := m.askConflict(name)
			return m, cmd
		}
		if errors.Is(msg.err, app.ErrAborted) {
			m.warn("Save aborted")
			return m, nil
		}
		m.fail(msg.err)
		return m, nil
	}

	if msg.res.Renamed {
		m.tbl.Rename(msg.res.Name)
	}
	if msg.rev == m.rev {
		m.tbl.MarkSaved()
	}
	m.syncStatus()

	var text string
	switch {
	case msg.auto:
		text = fmt.Sprintf("Auto-updated %q", msg.res.Name)
	case msg.res.Replaced:
		text = fmt.Sprintf("Overwrote %q with %d row(s)", msg.res.Name, msg.res.Rows)
	default:
		text = fmt.Sprintf("Saved %q with %d row(s)", msg.res.Name, msg.res.Rows)
	}
	m.success(text)
	return m, m.refreshCmd()
}

func (m Model) onFileSaved(msg fileSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	if msg.rev == m.rev {
		m.tbl.MarkSaved()
	}
	m.syncStatus()
	m.success("Saved to " + msg.path)
	return m, nil
}

func (m Model) onListed(msg listedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	m.showInfo(msg.title, msg.body)
	m.note(msg.title)
	if msg.refresh {
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) onConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	m.syncStatus()
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	m.success(msg.text)
	return m, m.refreshCmd()
}

func (m Model) onDone(msg doneMsg) (tea.Model, tea.Cmd) {
	m.syncStatus()
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	m.success(msg.text)
	if msg.refresh {
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) onConfigSaved(msg configSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	m.cfg = msg.cfg
	m.explorer.SetConnections(m.connectionNames())
	m.success(msg.text)
	return m, nil
}

func (m Model) onRefreshed(msg refreshedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		logging.FromContext(m.ctx).Debug("explorer refresh failed", "err", msg.err)
	}
	m.databaseNames = msg.databases
	m.tableNames = msg.tables
	m.explorer.SetDatabases(msg.databases, m.service.DatabaseName())
	m.explorer.SetTables(msg.tables, m.tbl.Name())
	return m, nil
}
