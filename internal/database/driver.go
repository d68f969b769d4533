// Package database defines the contract between tabula and relational
// stores, plus the type mapping and statement building the drivers share.
package database

import (
	"context"
	"errors"

	"github.com/joacominatel/tabula/internal/table"
)

// ErrTableNotFound is returned when a named table does not exist in the store.
var ErrTableNotFound = errors.New("table not found")

// ErrNotConnected is returned by drivers used before Connect.
var ErrNotConnected = errors.New("not connected")

// Driver defines the interface for relational store operations.
// Implementations hold a single connection (or a small pool) and are used
// from one goroutine at a time.
type Driver interface {
	// Connect opens the store identified by dsn.
	Connect(ctx context.Context, dsn string) error

	// Close releases the connection. Closing an unconnected driver is a no-op.
	Close() error

	// Ping checks if the connection is alive.
	Ping(ctx context.Context) error

	// ListTables returns user table names in name order.
	ListTables(ctx context.Context) ([]string, error)

	// TableExists reports whether a table with the exact name exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// TableColumns returns the table's columns mapped to program types.
	TableColumns(ctx context.Context, name string) ([]table.Column, error)

	// SelectAll reads every row of a table into a typed table.
	SelectAll(ctx context.Context, name string) (*table.Table, error)

	// ReplaceTable writes t under name in one transaction. With drop set an
	// existing table of that name is dropped first.
	ReplaceTable(ctx context.Context, name string, t *table.Table, drop bool) error

	// DropTable removes a table. A missing table is an error.
	DropTable(ctx context.Context, name string) error

	// DatabaseName returns the name of the connected database.
	DatabaseName() string
}
