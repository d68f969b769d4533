// Package postgres implements database.Driver on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/tabula/internal/database"
	"github.com/joacominatel/tabula/internal/table"
)

// Driver implements the database.Driver interface for PostgreSQL.
type Driver struct {
	pool   *pgxpool.Pool
	dbName string
}

// New creates a new PostgreSQL driver.
func New() *Driver {
	return &Driver{}
}

// Connect establishes a connection pool to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 2
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}

	d.pool = pool
	d.dbName = cfg.ConnConfig.Database
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	return nil
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.pool == nil {
		return database.ErrNotConnected
	}
	return d.pool.Ping(ctx)
}

// ListTables returns base tables in the current schema.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	if d.pool == nil {
		return nil, database.ErrNotConnected
	}
	rows, err := d.pool.Query(ctx, queryListTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan table: %w", err)
	}
	return tables, nil
}

// TableExists reports whether name is a table in the current schema.
func (d *Driver) TableExists(ctx context.Context, name string) (bool, error) {
	if d.pool == nil {
		return false, database.ErrNotConnected
	}
	var ok bool
	if err := d.pool.QueryRow(ctx, queryTableExists, name).Scan(&ok); err != nil {
		return false, fmt.Errorf("check table: %w", err)
	}
	return ok, nil
}

// TableColumns returns column metadata mapped to program types.
func (d *Driver) TableColumns(ctx context.Context, name string) ([]table.Column, error) {
	if d.pool == nil {
		return nil, database.ErrNotConnected
	}
	rows, err := d.pool.Query(ctx, queryGetColumns, name)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	var cols []table.Column
	for rows.Next() {
		var colName, dataType string
		if err := rows.Scan(&colName, &dataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, table.Column{Name: colName, Type: database.ProgramType(dataType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
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

	rows, err := d.pool.Query(ctx, selectQuery(name, cols))
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	var raw [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return database.BuildTable(name, cols, raw)
}

// selectQuery casts each column to the wire type of its program type, so
// NUMERIC and friends arrive as float64 rather than pgtype values.
func selectQuery(name string, cols []table.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = pgx.Identifier{c.Name}.Sanitize() + "::" + castType(c.Type)
	}
	return "SELECT " + strings.Join(parts, ", ") + " FROM " + pgx.Identifier{name}.Sanitize()
}

func castType(t table.Type) string {
	switch t {
	case table.TypeInt:
		return "bigint"
	case table.TypeFloat:
		return "double precision"
	case table.TypeBool:
		return "boolean"
	default:
		return "text"
	}
}

// createStatement widens the shared declarations to the 8-byte PostgreSQL
// types, since INTEGER and REAL are 4 bytes there.
func createStatement(name string, defs []database.ColumnDef) string {
	wide := make([]database.ColumnDef, len(defs))
	for i, d := range defs {
		wide[i] = d
		switch d.Type {
		case table.TypeInt:
			wide[i].SQLType = "BIGINT"
		case table.TypeFloat:
			wide[i].SQLType = "DOUBLE PRECISION"
		}
	}
	return database.CreateStatement(name, wide)
}

// ReplaceTable creates the table and bulk-loads rows with COPY, all in one
// transaction.
func (d *Driver) ReplaceTable(ctx context.Context, name string, t *table.Table, drop bool) error {
	if d.pool == nil {
		return database.ErrNotConnected
	}
	defs, err := database.ColumnDefs(t.Columns())
	if err != nil {
		return err
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if drop {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{name}.Sanitize()); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, createStatement(name, defs)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	colNames := make([]string, len(defs))
	for i, def := range defs {
		colNames[i] = def.Name
	}
	records := t.Records()
	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		return database.RowArgs(defs, records[i]), nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{name}, colNames, src); err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DropTable removes a table.
func (d *Driver) DropTable(ctx context.Context, name string) error {
	if d.pool == nil {
		return database.ErrNotConnected
	}
	if _, err := d.pool.Exec(ctx, "DROP TABLE "+pgx.Identifier{name}.Sanitize()); err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "42P01" {
			return fmt.Errorf("%w: %q", database.ErrTableNotFound, name)
		}
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}
