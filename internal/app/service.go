// Package app coordinates the table model, file formats and relational
// stores on behalf of the user interface.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joacominatel/tabula/internal/config"
	"github.com/joacominatel/tabula/internal/database"
	"github.com/joacominatel/tabula/internal/database/postgres"
	"github.com/joacominatel/tabula/internal/database/sqlite"
	"github.com/joacominatel/tabula/internal/format"
	"github.com/joacominatel/tabula/internal/logging"
	"github.com/joacominatel/tabula/internal/table"
)

// ConflictPolicy decides what SaveTable does when the table name is taken.
type ConflictPolicy int

const (
	// Ask returns *ErrTableExists so the caller can prompt.
	Ask ConflictPolicy = iota
	// Overwrite drops the existing table and recreates it.
	Overwrite
	// Rename saves under SaveOptions.NewName instead.
	Rename
	// Abort cancels the save.
	Abort
)

// SaveOptions controls SaveTable.
type SaveOptions struct {
	OnConflict ConflictPolicy
	NewName    string
}

// SaveResult describes a completed save.
type SaveResult struct {
	Name     string
	Replaced bool
	Renamed  bool
	Rows     int
}

// DriverFor picks the store driver for a DSN: PostgreSQL URLs go to pgx,
// anything else is treated as a SQLite file path.
func DriverFor(dsn string) database.Driver {
	if config.IsPostgresDSN(dsn) {
		return postgres.New()
	}
	return sqlite.New()
}

// Service coordinates application-level operations between the TUI and
// the store. Connection state is guarded so the UI can read it while a
// background command runs.
type Service struct {
	mu        sync.RWMutex
	driver    database.Driver
	dsn       string
	catalog   *Catalog
	newDriver func(dsn string) database.Driver
}

// NewService creates a service managing SQLite databases under databaseDir.
func NewService(databaseDir string) *Service {
	return &Service{
		catalog:   NewCatalog(databaseDir),
		newDriver: DriverFor,
	}
}

// Connect opens the store behind dsn, closing any previous connection.
func (s *Service) Connect(ctx context.Context, dsn string) error {
	d := s.newDriver(dsn)
	if err := d.Connect(ctx, dsn); err != nil {
		return &ErrConnection{Cause: err}
	}
	s.mu.Lock()
	if s.driver != nil {
		_ = s.driver.Close()
	}
	s.driver = d
	s.dsn = dsn
	s.mu.Unlock()
	logging.FromContext(ctx).Info("connected", "database", d.DatabaseName())
	return nil
}

// Disconnect closes the database connection.
func (s *Service) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close()
	s.driver = nil
	s.dsn = ""
	return err
}

// Connected reports whether a store is open.
func (s *Service) Connected() bool {
	return s.current() != nil
}

// DatabaseName returns the current database name, or "" when disconnected.
func (s *Service) DatabaseName() string {
	d := s.current()
	if d == nil {
		return ""
	}
	return d.DatabaseName()
}

// DSN returns the connection string of the open store.
func (s *Service) DSN() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dsn
}

func (s *Service) current() database.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driver
}

// Catalog returns the SQLite database directory manager.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// SaveTable persists t to the connected store.
//
// When a table of the same name exists the outcome depends on
// opts.OnConflict; with Ask the call fails with *ErrTableExists and the
// caller retries with the user's choice. On success t is marked saved and,
// for Rename, takes the new name. On failure t is left untouched.
func (s *Service) SaveTable(ctx context.Context, t *table.Table, opts SaveOptions) (SaveResult, error) {
	d := s.current()
	if d == nil {
		return SaveResult{}, &ErrNotConnected{}
	}
	if _, err := database.ColumnDefs(t.Columns()); err != nil {
		return SaveResult{}, err
	}

	name := t.Name()
	exists, err := d.TableExists(ctx, name)
	if err != nil {
		return SaveResult{}, &ErrQuery{Op: "check table", Cause: err}
	}

	res := SaveResult{Name: name, Rows: t.NumRows()}
	if exists {
		switch opts.OnConflict {
		case Overwrite:
			res.Replaced = true
		case Rename:
			newName := strings.TrimSpace(opts.NewName)
			if newName == "" {
				return SaveResult{}, ErrEmptyName
			}
			res.Name = newName
			res.Renamed = true
		case Abort:
			return SaveResult{}, ErrAborted
		default:
			return SaveResult{}, &ErrTableExists{Name: name}
		}
	}

	if err := d.ReplaceTable(ctx, res.Name, t, res.Replaced); err != nil {
		return SaveResult{}, &ErrQuery{Op: "save table", Cause: err}
	}

	if res.Renamed {
		t.Rename(res.Name)
	}
	t.MarkSaved()
	logging.WithFields(ctx, "table", res.Name).Info("table saved",
		"rows", res.Rows, "replaced", res.Replaced, "renamed", res.Renamed)
	return res, nil
}

// LoadTable reads a stored table. The result mirrors the store, so it
// starts out saved.
func (s *Service) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	d := s.current()
	if d == nil {
		return nil, &ErrNotConnected{}
	}
	t, err := d.SelectAll(ctx, name)
	if err != nil {
		return nil, &ErrQuery{Op: "load table", Cause: err}
	}
	t.MarkSaved()
	logging.WithFields(ctx, "table", name).Info("table loaded", "rows", t.NumRows())
	return t, nil
}

// ListTables returns the tables of the connected store.
func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	d := s.current()
	if d == nil {
		return nil, &ErrNotConnected{}
	}
	tables, err := d.ListTables(ctx)
	if err != nil {
		return nil, &ErrQuery{Op: "list tables", Cause: err}
	}
	return tables, nil
}

// DeleteTable drops a stored table.
func (s *Service) DeleteTable(ctx context.Context, name string) error {
	d := s.current()
	if d == nil {
		return &ErrNotConnected{}
	}
	if err := d.DropTable(ctx, name); err != nil {
		return &ErrQuery{Op: "delete table", Cause: err}
	}
	logging.WithFields(ctx, "table", name).Info("table deleted")
	return nil
}

// Match is one search hit. Row is 1-based.
type Match struct {
	Table  string
	Row    int
	Column string
	Type   table.Type
	Value  string
}

// Search finds cells containing query, ignoring case, in one table or in
// every table when tableName is empty.
func (s *Service) Search(ctx context.Context, query, tableName string) ([]Match, error) {
	d := s.current()
	if d == nil {
		return nil, &ErrNotConnected{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	targets := []string{tableName}
	if tableName == "" {
		var err error
		if targets, err = s.ListTables(ctx); err != nil {
			return nil, err
		}
	}

	needle := strings.ToLower(query)
	var matches []Match
	for _, name := range targets {
		t, err := d.SelectAll(ctx, name)
		if err != nil {
			return nil, &ErrQuery{Op: "search " + name, Cause: err}
		}
		cols := t.Columns()
		for r, rec := range t.Records() {
			for c, v := range rec {
				text := table.FormatValue(v)
				if strings.Contains(strings.ToLower(text), needle) {
					matches = append(matches, Match{
						Table:  name,
						Row:    r + 1,
						Column: cols[c].Name,
						Type:   cols[c].Type,
						Value:  text,
					})
				}
			}
		}
	}
	return matches, nil
}

// ImportFile reads a table from a file.
func (s *Service) ImportFile(ctx context.Context, f format.Format, path string, opts format.Options) (*table.Table, error) {
	t, err := format.Import(f, path, opts)
	if err != nil {
		return nil, &ErrIO{Op: "load " + f.String(), Path: path, Cause: err}
	}
	logging.WithFields(ctx, "path", path).Info("file imported", "format", f.String(), "rows", t.NumRows())
	return t, nil
}

// ExportFile writes t to a file and marks it saved.
func (s *Service) ExportFile(ctx context.Context, t *table.Table, f format.Format, path string) error {
	if t.NumColumns() == 0 {
		return &ErrIO{Op: "save " + f.String(), Path: path, Cause: table.ErrNoColumns}
	}
	if err := format.Export(f, t, path); err != nil {
		return &ErrIO{Op: "save " + f.String(), Path: path, Cause: err}
	}
	t.MarkSaved()
	logging.WithFields(ctx, "path", path).Info("file exported", "format", f.String(), "rows", t.NumRows())
	return nil
}

// IsConflict reports whether err is a save name clash and returns the name.
func IsConflict(err error) (string, bool) {
	var te *ErrTableExists
	if errors.As(err, &te) {
		return te.Name, true
	}
	return "", false
}

func nextTableName(existing []string) string {
	taken := make(map[string]bool, len(existing))
	for _, n := range existing {
		taken[n] = true
	}
	for n := len(existing) + 1; ; n++ {
		name := fmt.Sprintf("Table %d", n)
		if !taken[name] {
			return name
		}
	}
}
