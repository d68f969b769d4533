package tui

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/joacominatel/tabula/internal/app"
	"github.com/joacominatel/tabula/internal/config"
	"github.com/joacominatel/tabula/internal/format"
	"github.com/joacominatel/tabula/internal/logging"
	"github.com/joacominatel/tabula/internal/table"
	"github.com/joacominatel/tabula/internal/tui/theme"
)

// localCommands touch neither the table nor any file or store, so they
// may run while a background operation is in flight.
var localCommands = map[app.CommandKind]bool{
	app.CmdHelp:            true,
	app.CmdExit:            true,
	app.CmdPrintTable:      true,
	app.CmdPrintTableData:  true,
	app.CmdCurrentTable:    true,
	app.CmdCurrentDatabase: true,
	app.CmdSettings:        true,
	app.CmdListConnections: true,
	app.CmdCopyCell:        true,
	app.CmdCopyRow:         true,
}

// execute dispatches a parsed command.
func (m *Model) execute(c app.Command) tea.Cmd {
	if m.busy && !localCommands[c.Kind] {
		m.warn("Still working, try again in a moment")
		return nil
	}
	logging.FromContext(m.ctx).Debug("command", "kind", int(c.Kind), "arg", c.Arg)

	switch c.Kind {
	case app.CmdHelp:
		m.showHelp()
	case app.CmdExit:
		return m.exit()

	case app.CmdAddColumn:
		return m.addColumn(c)
	case app.CmdRemoveColumn:
		return m.askColumn("Column to remove", c.Arg, func(m *Model, i int) tea.Cmd {
			name := m.tbl.Header()[i]
			if err := m.tbl.RemoveColumn(name); err != nil {
				m.fail(err)
				return nil
			}
			m.success(fmt.Sprintf("Removed column %q", name))
			return m.changed()
		})
	case app.CmdRenameColumn:
		return m.askColumn("Column to rename", c.Arg, func(m *Model, i int) tea.Cmd {
			old := m.tbl.Header()[i]
			return m.askName(fmt.Sprintf("New name for %q", old), nil, func(m *Model, name string) tea.Cmd {
				if err := m.tbl.RenameColumn(old, name); err != nil {
					m.fail(err)
					return nil
				}
				m.success(fmt.Sprintf("Renamed column %q to %q", old, name))
				return m.changed()
			})
		})
	case app.CmdChangeType:
		return m.askColumn("Column to retype", c.Arg, func(m *Model, i int) tea.Cmd {
			name := m.tbl.Header()[i]
			return m.askType(fmt.Sprintf("New type for %q", name), func(m *Model, t table.Type) tea.Cmd {
				if err := m.tbl.ChangeColumnType(i, t); err != nil {
					m.fail(err)
					return nil
				}
				m.success(fmt.Sprintf("Column %q is now %s", name, t))
				return m.changed()
			})
		})
	case app.CmdAddRow:
		if m.tbl.NumColumns() == 0 {
			m.fail(table.ErrNoColumns)
			return nil
		}
		return m.askRowValues(make([]string, m.tbl.NumColumns()), 0)
	case app.CmdEditCell:
		return m.editCell(c)
	case app.CmdRemoveRow:
		return m.askRow("Row to remove", c.Arg, func(m *Model, r int) tea.Cmd {
			if err := m.tbl.RemoveRow(r); err != nil {
				m.fail(err)
				return nil
			}
			m.success(fmt.Sprintf("Removed row %d", r+1))
			return m.changed()
		})
	case app.CmdClearTable:
		return m.confirm(fmt.Sprintf("Remove all columns and rows from %q?", m.tbl.Name()), func(m *Model) tea.Cmd {
			m.tbl.Clear()
			m.success("Table cleared")
			return m.changed()
		})
	case app.CmdRename:
		return m.argOr(c.Arg, "New table name", nil, func(m *Model, name string) tea.Cmd {
			if name == "" {
				m.fail(app.ErrEmptyName)
				return nil
			}
			m.tbl.Rename(name)
			m.success(fmt.Sprintf("Table renamed to %q", name))
			return m.changed()
		})
	case app.CmdInferTypes:
		n, err := m.tbl.InferColumnTypes()
		if err != nil {
			m.warn(err.Error())
			return nil
		}
		m.success(fmt.Sprintf("%d column type(s) changed", n))
		if n > 0 {
			return m.changed()
		}
	case app.CmdPrintTable:
		m.printTable()
	case app.CmdPrintTableData:
		var buf bytes.Buffer
		if err := format.WriteJSON(&buf, m.tbl); err != nil {
			m.fail(err)
			return nil
		}
		m.showInfo(fmt.Sprintf("Table data: %s", displayName(m.tbl.Name())), buf.String())
	case app.CmdCurrentTable:
		state := "saved"
		if !m.tbl.Saved() {
			state = "unsaved"
		}
		m.note(fmt.Sprintf("Table %s: %d column(s), %d row(s), %s",
			displayName(m.tbl.Name()), m.tbl.NumColumns(), m.tbl.NumRows(), state))
	case app.CmdNewTable:
		return m.guardUnsaved(func(m *Model) tea.Cmd {
			return m.argOr(c.Arg, "Name for the new table", nil, func(m *Model, name string) tea.Cmd {
				m.setTable(table.New(name))
				m.success(fmt.Sprintf("Started table %s", displayName(name)))
				return nil
			})
		})

	case app.CmdLoadFile:
		return m.guardUnsaved(func(m *Model) tea.Cmd {
			label := fmt.Sprintf("Path to the %s file", strings.ToUpper(c.Format.String()))
			return m.argOr(c.Arg, label, nil, func(m *Model, path string) tea.Cmd {
				if path == "" {
					m.warn("Cancelled")
					return nil
				}
				return m.importFileCmd(c.Format, path)
			})
		})
	case app.CmdSaveFile:
		return m.saveFile(c)
	case app.CmdLoadCSVBatch:
		return m.loadCSVBatch(c)

	case app.CmdLoadTable:
		if !m.requireConnection() {
			return nil
		}
		return m.guardUnsaved(func(m *Model) tea.Cmd {
			return m.argOr(c.Arg, "Table to load", m.tableNames, func(m *Model, name string) tea.Cmd {
				return m.loadTableCmd(name)
			})
		})
	case app.CmdSaveTable:
		return m.saveTable()
	case app.CmdDeleteTable:
		if !m.requireConnection() {
			return nil
		}
		return m.argOr(c.Arg, "Table to delete", m.tableNames, func(m *Model, name string) tea.Cmd {
			return m.confirm(fmt.Sprintf("Delete table %q from %s?", name, m.service.DatabaseName()), func(m *Model) tea.Cmd {
				service := m.service
				return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
					err := service.DeleteTable(ctx, name)
					return doneMsg{text: fmt.Sprintf("Deleted table %q", name), refresh: true, err: err}
				})
			})
		})
	case app.CmdListTables:
		if !m.requireConnection() {
			return nil
		}
		service := m.service
		return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
			tables, err := service.ListTables(ctx)
			title := fmt.Sprintf("Tables in %s", service.DatabaseName())
			return listedMsg{title: title, body: bulletList(tables, "No tables yet."), refresh: true, err: err}
		})
	case app.CmdSearch:
		return m.search(c)

	case app.CmdCreateDatabase:
		return m.argOr(c.Arg, "Name for the new database", nil, func(m *Model, name string) tea.Cmd {
			service := m.service
			return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
				path, err := service.CreateDatabase(ctx, name)
				return connectedMsg{text: "Created and connected to " + path, err: err}
			})
		})
	case app.CmdDeleteDatabase:
		return m.argOr(c.Arg, "Database to delete", m.databaseNames, func(m *Model, name string) tea.Cmd {
			return m.confirm(fmt.Sprintf("Delete database %q and all its tables?", name), func(m *Model) tea.Cmd {
				service := m.service
				return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
					err := service.DeleteDatabase(ctx, name)
					return doneMsg{text: fmt.Sprintf("Deleted database %q", name), refresh: true, err: err}
				})
			})
		})
	case app.CmdListDatabases:
		service := m.service
		return m.run(storeTimeout, func(context.Context) tea.Msg {
			names, err := service.ListDatabases()
			title := fmt.Sprintf("Databases in %s", service.Catalog().Dir())
			return listedMsg{title: title, body: bulletList(names, "No databases yet. Run 'create database'."), refresh: true, err: err}
		})
	case app.CmdSelectDatabase:
		return m.argOr(c.Arg, "Database to open", m.databaseNames, func(m *Model, name string) tea.Cmd {
			service := m.service
			return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
				if err := service.SelectDatabase(ctx, name); err != nil {
					return connectedMsg{err: err}
				}
				return connectedMsg{text: "Connected to " + service.DatabaseName()}
			})
		})
	case app.CmdCurrentDatabase:
		if !m.service.Connected() {
			m.note("No database connected")
			return nil
		}
		m.note("Connected to " + m.service.DatabaseName())
	case app.CmdCloseDatabase:
		if !m.requireConnection() {
			return nil
		}
		name := m.service.DatabaseName()
		if err := m.service.Disconnect(); err != nil {
			m.fail(&app.ErrConnection{Cause: err})
		} else {
			m.success("Closed " + name)
		}
		m.tableNames = nil
		m.explorer.SetTables(nil, "")
		m.explorer.SetDatabases(m.databaseNames, "")
		m.syncStatus()
	case app.CmdConnect:
		label := "Saved connection, postgres:// URL or SQLite file"
		return m.argOr(c.Arg, label, m.connectionNames(), func(m *Model, target string) tea.Cmd {
			if target == "" {
				m.warn("Cancelled")
				return nil
			}
			if !config.IsPostgresDSN(target) && m.cfg.HasConnection(target) {
				return m.connectProfileCmd(target)
			}
			return m.connectCmd(target)
		})
	case app.CmdSaveConnection:
		return m.saveConnection(c)
	case app.CmdListConnections:
		m.listConnections()
	case app.CmdRemoveConnection:
		return m.argOr(c.Arg, "Connection to forget", m.connectionNames(), func(m *Model, name string) tea.Cmd {
			cfg := m.cfg.Clone()
			return m.run(storeTimeout, func(context.Context) tea.Msg {
				if err := config.RemoveConnection(cfg, name); err != nil {
					return configSavedMsg{err: &app.ErrConfig{Cause: err}}
				}
				return configSavedMsg{cfg: cfg, text: fmt.Sprintf("Forgot connection %q", name)}
			})
		})

	case app.CmdSettings:
		m.showSettings()
	case app.CmdSet:
		return m.set(c)
	case app.CmdDefaultSettings:
		m.cfg.Settings = config.DefaultSettings()
		m.showSettings()
		return m.saveConfigCmd(m.cfg.Clone(), "Settings restored to defaults")

	case app.CmdCopyCell:
		return m.grid.CopyCell()
	case app.CmdCopyRow:
		return m.grid.CopyRow()
	}
	return nil
}

func (m *Model) exit() tea.Cmd {
	if !m.dirty() {
		return tea.Quit
	}
	return m.confirm(fmt.Sprintf("Table %q has unsaved changes. Exit anyway?", m.tbl.Name()), func(*Model) tea.Cmd {
		return tea.Quit
	})
}

func (m *Model) addColumn(c app.Command) tea.Cmd {
	apply := func(m *Model, name string, t table.Type) tea.Cmd {
		if err := m.tbl.AddColumn(name, t); err != nil {
			m.fail(err)
			return nil
		}
		m.success(fmt.Sprintf("Added column %q (%s)", name, t))
		return m.changed()
	}

	// "add column <name> <type>" skips the prompts
	if f := c.Fields(); len(f) == 2 {
		t, err := table.ParseType(f[1])
		if err != nil {
			m.fail(err)
			return nil
		}
		return apply(m, f[0], t)
	}

	return m.askName("Column name", nil, func(m *Model, name string) tea.Cmd {
		return m.askType(fmt.Sprintf("Type for %q", name), func(m *Model, t table.Type) tea.Cmd {
			return apply(m, name, t)
		})
	})
}

// askRowValues collects one validated value per column, then appends
// the row.
func (m *Model) askRowValues(values []string, i int) tea.Cmd {
	label := fmt.Sprintf("[%d/%d] Value for", i+1, len(values))
	return m.askValue(label, i, func(m *Model, raw string) tea.Cmd {
		values[i] = raw
		if i+1 < len(values) {
			return m.askRowValues(values, i+1)
		}
		if err := m.tbl.AddRow(values); err != nil {
			m.fail(err)
			return nil
		}
		m.success(fmt.Sprintf("Added row %d", m.tbl.NumRows()))
		return m.changed()
	})
}

func (m *Model) editCell(c app.Command) tea.Cmd {
	if m.tbl.NumColumns() == 0 {
		m.fail(table.ErrNoColumns)
		return nil
	}
	return m.askRow("Row to edit", c.Arg, func(m *Model, r int) tea.Cmd {
		return m.askColumn("Column to edit", "", func(m *Model, col int) tea.Cmd {
			return m.askValue("New value for", col, func(m *Model, raw string) tea.Cmd {
				if err := m.tbl.EditCell(r, col, raw); err != nil {
					m.fail(err)
					return nil
				}
				m.success(fmt.Sprintf("Updated row %d, column %q", r+1, m.tbl.Header()[col]))
				return m.changed()
			})
		})
	})
}

func (m *Model) saveFile(c app.Command) tea.Cmd {
	if m.tbl.NumColumns() == 0 {
		m.fail(table.ErrNoColumns)
		return nil
	}
	def := defaultFileName(m.tbl.Name(), c.Format)
	label := fmt.Sprintf("Save %s to (blank for %s)", strings.ToUpper(c.Format.String()), def)
	if strings.TrimSpace(c.Arg) != "" {
		return m.exportFileCmd(c.Format, strings.TrimSpace(c.Arg))
	}
	return m.ask(label, nil, func(m *Model, path string) tea.Cmd {
		if path == "" {
			path = def
		}
		return m.exportFileCmd(c.Format, path)
	})
}

func defaultFileName(name string, f format.Format) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = "table"
	}
	base = strings.ReplaceAll(base, string(filepath.Separator), "_")
	return base + f.Ext()
}

func (m *Model) loadCSVBatch(c app.Command) tea.Cmd {
	if !m.requireConnection() {
		return nil
	}
	return m.argOr(c.Arg, "Directory with CSV files", nil, func(m *Model, dir string) tea.Cmd {
		if dir == "" {
			m.warn("Cancelled")
			return nil
		}
		return m.ask("Include subdirectories? (y/n)", []string{"yes", "no"}, func(m *Model, answer string) tea.Cmd {
			service := m.service
			opts := app.BatchOptions{
				Recursive:  yes(answer),
				InferTypes: m.cfg.Settings.InferDataTypes,
				AutoUpdate: m.cfg.Settings.AutoUpdate,
			}
			return m.run(fileTimeout, func(ctx context.Context) tea.Msg {
				entries, err := service.ImportCSVDir(ctx, dir, opts)
				if err != nil {
					return listedMsg{err: err}
				}
				return listedMsg{
					title:   fmt.Sprintf("Loaded %d CSV file(s) from %s", len(entries), dir),
					body:    batchReport(entries),
					refresh: true,
				}
			})
		})
	})
}

func (m *Model) saveTable() tea.Cmd {
	if !m.requireConnection() {
		return nil
	}
	if m.tbl.NumColumns() == 0 {
		m.fail(table.ErrNoColumns)
		return nil
	}
	policy := app.Ask
	if m.cfg.Settings.AutoUpdate {
		policy = app.Overwrite
	}
	if strings.TrimSpace(m.tbl.Name()) != "" {
		return m.saveTableCmd(app.SaveOptions{OnConflict: policy}, false)
	}
	return m.askName("Name for the table", m.tableNames, func(m *Model, name string) tea.Cmd {
		m.tbl.Rename(name)
		m.syncStatus()
		return m.saveTableCmd(app.SaveOptions{OnConflict: policy}, false)
	})
}

// askConflict resolves a save onto an existing table.
func (m *Model) askConflict(name string) tea.Cmd {
	label := fmt.Sprintf("Table %q already exists: (o)verwrite, (n)ew name or (a)bort?", name)
	var handle answerFunc
	handle = func(m *Model, answer string) tea.Cmd {
		switch strings.ToLower(answer) {
		case "o", "overwrite":
			return m.saveTableCmd(app.SaveOptions{OnConflict: app.Overwrite}, false)
		case "n", "new", "new name":
			return m.ask("New table name", nil, func(m *Model, newName string) tea.Cmd {
				return m.saveTableCmd(app.SaveOptions{OnConflict: app.Rename, NewName: newName}, false)
			})
		case "a", "abort":
			m.warn("Save aborted")
			return nil
		}
		return m.ask(label, []string{"overwrite", "new name", "abort"}, handle)
	}
	return m.ask(label, []string{"overwrite", "new name", "abort"}, handle)
}

func (m *Model) search(c app.Command) tea.Cmd {
	if !m.requireConnection() {
		return nil
	}
	start := func(m *Model, query, tableName string) tea.Cmd {
		service := m.service
		return m.run(storeTimeout, func(ctx context.Context) tea.Msg {
			matches, err := service.Search(ctx, query, tableName)
			if err != nil {
				return listedMsg{err: err}
			}
			return listedMsg{
				title: fmt.Sprintf("%d match(es) for %q", len(matches), query),
				body:  searchReport(matches),
			}
		})
	}
	if q := strings.TrimSpace(c.Arg); q != "" {
		return start(m, q, "")
	}
	return m.ask("Search for", nil, func(m *Model, query string) tea.Cmd {
		if query == "" {
			m.fail(app.ErrEmptyQuery)
			return nil
		}
		return m.ask("Table to search (blank for all)", m.tableNames, func(m *Model, tableName string) tea.Cmd {
			return start(m, query, tableName)
		})
	})
}

func (m *Model) saveConnection(c app.Command) tea.Cmd {
	if !m.requireConnection() {
		return nil
	}
	dsn := m.service.DSN()
	if !config.IsPostgresDSN(dsn) {
		m.warn("Only PostgreSQL connections can be saved; SQLite files are listed under 'list databases'")
		return nil
	}
	conn, err := config.ParseDSN(dsn)
	if err != nil {
		m.fail(&app.ErrConfig{Cause: err})
		return nil
	}
	label := fmt.Sprintf("Name for this connection (blank for %s)", conn.Name)
	save := func(m *Model, name string) tea.Cmd {
		if name != "" {
			conn.Name = name
		}
		if m.cfg.HasConnection(conn.Name) {
			m.warn(fmt.Sprintf("A connection named %q already exists", conn.Name))
			return nil
		}
		cfg := m.cfg.Clone()
		return m.run(storeTimeout, func(context.Context) tea.Msg {
			if err := config.SaveConnection(cfg, conn); err != nil {
				return configSavedMsg{err: &app.ErrConfig{Cause: err}}
			}
			return configSavedMsg{cfg: cfg, text: fmt.Sprintf("Saved connection %q", conn.Name)}
		})
	}
	if strings.TrimSpace(c.Arg) != "" {
		return save(m, strings.TrimSpace(c.Arg))
	}
	return m.ask(label, nil, save)
}

func (m *Model) set(c app.Command) tea.Cmd {
	apply := func(m *Model, name, value string) tea.Cmd {
		on, err := config.ParseOnOff(value)
		if err != nil {
			m.fail(err)
			return nil
		}
		if err := m.cfg.Settings.Set(name, on); err != nil {
			m.fail(err)
			return nil
		}
		if m.content == viewInfo && m.infoTitle == settingsTitle {
			m.showSettings()
		}
		return m.saveConfigCmd(m.cfg.Clone(), fmt.Sprintf("%s is now %s", name, config.OnOff(on)))
	}

	switch f := c.Fields(); len(f) {
	case 2:
		return apply(m, f[0], f[1])
	case 1:
		name := f[0]
		return m.ask(fmt.Sprintf("Turn %s on or off?", name), []string{"on", "off"}, func(m *Model, v string) tea.Cmd {
			return apply(m, name, v)
		})
	default:
		return m.ask("Setting to change", m.cfg.Settings.Names(), func(m *Model, name string) tea.Cmd {
			return m.ask(fmt.Sprintf("Turn %s on or off?", name), []string{"on", "off"}, func(m *Model, v string) tea.Cmd {
				return apply(m, name, v)
			})
		})
	}
}

const settingsTitle = "Settings"

func (m *Model) showSettings() {
	t := newReport("Setting", "Value", "Description")
	for _, s := range m.cfg.Settings.List() {
		t.Row(s.Name, config.OnOff(s.On), s.Description)
	}
	m.showInfo(settingsTitle, t.Render()+"\n\n"+theme.StyleMuted.Render("Change with: set <setting> on|off"))
}

func (m *Model) listConnections() {
	if len(m.cfg.Connections) == 0 {
		m.showInfo("Saved connections", theme.StyleMuted.Render("No saved connections. Connect to a postgres:// URL and run 'save connection'."))
		return
	}
	t := newReport("Name", "Target")
	for _, c := range m.cfg.Connections {
		t.Row(c.Name, c.DisplayString())
	}
	m.showInfo("Saved connections", t.Render())
}

func newReport(headers ...string) *ltable.Table {
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return theme.StyleTitle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func bulletList(items []string, empty string) string {
	if len(items) == 0 {
		return theme.StyleMuted.Render(empty)
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  • " + it)
	}
	return b.String()
}

func batchReport(entries []app.BatchEntry) string {
	t := newReport("File", "Table", "Result")
	for _, e := range entries {
		result := "ok"
		name := e.Table
		if e.Err != nil {
			result = e.Err.Error()
			name = "-"
		}
		t.Row(e.Path, name, result)
	}
	return t.Render()
}

func searchReport(matches []app.Match) string {
	if len(matches) == 0 {
		return theme.StyleMuted.Render("No matches.")
	}
	t := newReport("Table", "Row", "Column", "Value")
	for _, mt := range matches {
		t.Row(mt.Table, fmt.Sprint(mt.Row), fmt.Sprintf("%s (%s)", mt.Column, mt.Type), mt.Value)
	}
	return t.Render()
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(untitled)"
	}
	return fmt.Sprintf("%q", name)
}
