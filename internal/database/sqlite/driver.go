// Package sqlite implements database.Driver on SQLite files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joacominatel/tabula/internal/database"
	"github.com/joacominatel/tabula/internal/table"

	_ "modernc.org/sqlite"
)

// Driver implements the database.Driver interface for SQLite.
type Driver struct {
	db   *sql.DB
	path string
}

// New creates a new SQLite driver.
func New() *Driver {
	return &Driver{}
}

// Connect opens an existing database file. The dsn is a file path,
// optionally prefixed with "sqlite://".
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping: %w", err)
	}

	d.db = db
	d.path = path
	return nil
}

// Close closes the database handle.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.db == nil {
		return database.ErrNotConnected
	}
	return d.db.PingContext(ctx)
}

// ListTables returns all user tables.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	if d.db == nil {
		return nil, database.ErrNotConnected
	}
	rows, err := d.db.QueryContext(ctx, queryListTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableExists reports whether name is a table in the database.
func (d *Driver) TableExists(ctx context.Context, name string) (bool, error) {
	if d.db == nil {
		return false, database.ErrNotConnected
	}
	var n int
	if err := d.db.QueryRowContext(ctx, queryTableExists, name).Scan(&n); err != nil {
		return false, fmt.Errorf("check table: %w", err)
	}
	return n > 0, nil
}

// TableColumns reads column declarations via PRAGMA table_info.
func (d *Driver) TableColumns(ctx context.Context, name string) ([]table.Column, error) {
	if d.db == nil {
		return nil, database.ErrNotConnected
	}
	rows, err := d.db.QueryContext(ctx, "PRAGMA table_info("+database.QuoteIdent(name)+")")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []table.Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			colName, typ     string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &colName, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, table.Column{Name: colName, Type: database.ProgramType(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q", database.ErrTableNotFound, name)
	}
	return cols, nil
}

// SelectAll reads a whole table.
func (d *Driver) SelectAll(ctx context.Context, name string) (*table.Table, error) {
	cols, err := d.TableColumns(ctx, name)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = database.QuoteIdent(c.Name)
	}
	query := "SELECT " + strings.Join(quoted, ", ") + " FROM " + database.QuoteIdent(name)

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	var raw [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		raw = append(raw, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return database.BuildTable(name, cols, raw)
}

// ReplaceTable creates the table and inserts every row in one transaction.
func (d *Driver) ReplaceTable(ctx context.Context, name string, t *table.Table, drop bool) error {
	if d.db == nil {
		return database.ErrNotConnected
	}
	defs, err := database.ColumnDefs(t.Columns())
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if drop {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+database.QuoteIdent(name)); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, database.CreateStatement(name, defs)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, database.InsertStatement(name, defs, func(int) string { return "?" }))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range t.Records() {
		if _, err := stmt.ExecContext(ctx, database.RowArgs(defs, rec)...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DropTable removes a table.
func (d *Driver) DropTable(ctx context.Context, name string) error {
	if d.db == nil {
		return database.ErrNotConnected
	}
	ok, err := d.TableExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", database.ErrTableNotFound, name)
	}
	if _, err := d.db.ExecContext(ctx, "DROP TABLE "+database.QuoteIdent(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// DatabaseName returns the database file name.
func (d *Driver) DatabaseName() string {
	if d.path == "" {
		return ""
	}
	return filepath.Base(d.path)
}

// Path returns the database file path.
func (d *Driver) Path() string {
	return d.path
}
