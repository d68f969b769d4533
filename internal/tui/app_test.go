package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/tabula/internal/app"
	"github.com/joacominatel/tabula/internal/config"
	"github.com/joacominatel/tabula/internal/table"
	"github.com/joacominatel/tabula/internal/tui/cmdline"
)

func newTestModel(t *testing.T, opts Options) (Model, *app.Service) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.DatabaseDir = dir
	service := app.NewService(dir)
	t.Cleanup(func() { service.Disconnect() })
	return NewModel(context.Background(), service, cfg, opts), service
}

// send submits a line as if typed on the command line.
func send(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	nm, cmd := m.Update(cmdline.SubmitMsg{Value: line})
	return nm.(Model), cmd
}

// finish runs a background command and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a background command")
	}
	nm, next := m.Update(cmd())
	return nm.(Model), next
}

func TestAddColumnFlow(t *testing.T) {
	m, _ := newTestModel(t, Options{TableName: "people"})

	m, _ = send(t, m, "add column")
	if m.prompt == nil {
		t.Fatal("add column did not prompt for a name")
	}
	m, _ = send(t, m, "age")
	m, _ = send(t, m, "number")
	if m.prompt == nil {
		t.Fatal("an invalid type should prompt again")
	}
	if m.tbl.NumColumns() != 0 {
		t.Fatal("column added with an invalid type")
	}
	m, _ = send(t, m, "INT")

	if m.prompt != nil {
		t.Error("prompt still open after a valid type")
	}
	col, err := m.tbl.Column(0)
	if err != nil {
		t.Fatal(err)
	}
	if col.Name != "age" || col.Type != table.TypeInt {
		t.Errorf("got column %q (%s), want age (int)", col.Name, col.Type)
	}
	if m.tbl.Saved() {
		t.Error("table should be unsaved after a change")
	}
}

func TestAddRowRepromptsInvalidValue(t *testing.T) {
	m, _ := newTestModel(t, Options{TableName: "people"})
	m, _ = send(t, m, "add column age int")

	m, _ = send(t, m, "add row")
	m, _ = send(t, m, "abc")
	if m.prompt == nil {
		t.Fatal("an invalid int should prompt again")
	}
	if !strings.Contains(m.statusbar.Message(), "expected") {
		t.Errorf("status %q does not explain the expected value", m.statusbar.Message())
	}
	m, _ = send(t, m, "42")

	if m.tbl.NumRows() != 1 {
		t.Fatalf("got %d rows, want 1", m.tbl.NumRows())
	}
	v, _ := m.tbl.Cell(0, 0)
	if v != int64(42) && v != 42 {
		t.Errorf("cell = %v (%T), want 42", v, v)
	}
}

func TestUnknownCommandSuggests(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m, _ = send(t, m, "add colum")
	if !strings.Contains(m.statusbar.Message(), "Did you mean") {
		t.Errorf("status %q has no suggestion", m.statusbar.Message())
	}
}

func TestExitGuard(t *testing.T) {
	tests := []struct {
		name     string
		dirty    bool
		answer   string
		wantQuit bool
	}{
		{"clean table quits", false, "", true},
		{"dirty table confirmed", true, "y", true},
		{"dirty table declined", true, "n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t, Options{TableName: "people"})
			if tt.dirty {
				m, _ = send(t, m, "add column name str")
			}
			m, cmd := send(t, m, "exit")
			if tt.dirty {
				if m.prompt == nil {
					t.Fatal("dirty exit did not ask for confirmation")
				}
				m, cmd = send(t, m, tt.answer)
			}
			quit := false
			if cmd != nil {
				_, quit = cmd().(tea.QuitMsg)
			}
			if quit != tt.wantQuit {
				t.Errorf("quit = %v, want %v", quit, tt.wantQuit)
			}
		})
	}
}

func TestSaveTableConflictOverwrite(t *testing.T) {
	ctx := context.Background()

	stored := table.New("people")
	if err := stored.AddColumn("name", table.TypeStr); err != nil {
		t.Fatal(err)
	}
	if err := stored.AddRow([]string{"Ann"}); err != nil {
		t.Fatal(err)
	}

	current := table.New("people")
	if err := current.AddColumn("name", table.TypeStr); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"Bea", "Cid"} {
		if err := current.AddRow([]string{n}); err != nil {
			t.Fatal(err)
		}
	}

	m, service := newTestModel(t, Options{Table: current})
	if _, err := service.CreateDatabase(ctx, "test"); err != nil {
		t.Fatal(err)
	}
	if _, err := service.SaveTable(ctx, stored, app.SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	m, cmd := send(t, m, "save table")
	if !m.busy {
		t.Error("model should be busy while saving")
	}
	m, _ = finish(t, m, cmd)
	if m.busy {
		t.Error("busy flag not cleared by the result")
	}
	if m.prompt == nil || !strings.Contains(m.prompt.label, "already exists") {
		t.Fatal("conflicting save did not ask how to resolve it")
	}

	m, cmd = send(t, m, "o")
	m, _ = finish(t, m, cmd)
	if !m.tbl.Saved() {
		t.Errorf("table not marked saved, status %q", m.statusbar.Message())
	}

	got, err := service.LoadTable(ctx, "people")
	if err != nil {
		t.Fatal(err)
	}
	if got.NumRows() != 2 {
		t.Errorf("stored table has %d rows, want 2", got.NumRows())
	}
}

func TestSaveTableConflictAbort(t *testing.T) {
	ctx := context.Background()
	current := table.New("people")
	if err := current.AddColumn("name", table.TypeStr); err != nil {
		t.Fatal(err)
	}

	m, service := newTestModel(t, Options{Table: current})
	if _, err := service.CreateDatabase(ctx, "test"); err != nil {
		t.Fatal(err)
	}
	if _, err := service.SaveTable(ctx, current.Clone(), app.SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	m, cmd := send(t, m, "save table")
	m, _ = finish(t, m, cmd)
	m, cmd = send(t, m, "a")
	if cmd != nil {
		t.Error("aborting should not start another save")
	}
	if m.tbl.Saved() {
		t.Error("aborted save marked the table saved")
	}
	if !strings.Contains(m.statusbar.Message(), "aborted") {
		t.Errorf("status %q, want an aborted notice", m.statusbar.Message())
	}
}

func TestAutoprint(t *testing.T) {
	tests := []struct {
		autoprint bool
		want      contentView
	}{
		{false, viewInfo},
		{true, viewGrid},
	}
	for _, tt := range tests {
		m, _ := newTestModel(t, Options{TableName: "people"})
		m.cfg.Settings.AutoprintTable = tt.autoprint
		if m.content != viewInfo {
			t.Fatal("help should be shown on start")
		}
		m, _ = send(t, m, "add column age int")
		if m.content != tt.want {
			t.Errorf("autoprint=%v: content = %d, want %d", tt.autoprint, m.content, tt.want)
		}
		if tt.autoprint && m.grid.Table().NumColumns() != 1 {
			t.Error("grid not refreshed after the change")
		}
	}
}

func TestBusyRejectsChanges(t *testing.T) {
	m, _ := newTestModel(t, Options{TableName: "people"})
	m.setBusy(true)

	m, _ = send(t, m, "add column age int")
	if m.tbl.NumColumns() != 0 {
		t.Error("table changed while busy")
	}
	if !strings.Contains(m.statusbar.Message(), "Still working") {
		t.Errorf("status %q", m.statusbar.Message())
	}

	m, _ = send(t, m, "print table")
	if m.content != viewGrid {
		t.Error("print table should run while busy")
	}
}

func TestSetPersists(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	path := m.cfg.Path()

	m, cmd := send(t, m, "set autoprint_table on")
	if !m.cfg.Settings.AutoprintTable {
		t.Error("setting not applied immediately")
	}
	m, _ = finish(t, m, cmd)
	if !strings.Contains(m.statusbar.Message(), "autoprint_table is now on") {
		t.Errorf("status %q", m.statusbar.Message())
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Settings.AutoprintTable {
		t.Error("setting was not written to the config file")
	}
}

func TestRowNumber(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		want    int
		wantErr bool
	}{
		{"1", 3, 0, false},
		{" 3 ", 3, 2, false},
		{"0", 3, 0, true},
		{"4", 3, 0, true},
		{"two", 3, 0, true},
	}
	for _, tt := range tests {
		got, err := parseRowNumber(tt.in, tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRowNumber(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseRowNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
