package app

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted is returned when the user declines a conflicting save.
	ErrAborted = errors.New("save aborted")
	// ErrEmptyName is returned for a blank table or database name.
	ErrEmptyName = errors.New("name cannot be empty")
	// ErrEmptyQuery is returned for a blank search string.
	ErrEmptyQuery = errors.New("search query cannot be empty")
)

// ErrConnection represents a database connection error.
type ErrConnection struct {
	Cause error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrQuery represents a failed store operation.
type ErrQuery struct {
	Op    string
	Cause error
}

func (e *ErrQuery) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *ErrQuery) Unwrap() error {
	return e.Cause
}

// ErrConfig represents a configuration error.
type ErrConfig struct {
	Cause error
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config error: %v", e.Cause)
}

func (e *ErrConfig) Unwrap() error {
	return e.Cause
}

// ErrIO represents a failed file import or export.
type ErrIO struct {
	Op    string
	Path  string
	Cause error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *ErrIO) Unwrap() error {
	return e.Cause
}

// ErrNotConnected is returned by store operations without a connection.
type ErrNotConnected struct{}

func (e *ErrNotConnected) Error() string {
	return "no database connected"
}

// ErrTableExists reports a save that clashes with an existing table. The
// caller decides how to resolve it and saves again.
type ErrTableExists struct {
	Name string
}

func (e *ErrTableExists) Error() string {
	return fmt.Sprintf("table %q already exists", e.Name)
}

// ErrUnknownCommand reports unrecognised input, with the closest known
// command when one is similar enough.
type ErrUnknownCommand struct {
	Input      string
	Suggestion string
}

func (e *ErrUnknownCommand) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("invalid command %q. Did you mean %q?", e.Input, e.Suggestion)
	}
	return fmt.Sprintf("invalid command %q", e.Input)
}
