package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joacominatel/tabula/internal/logging"
)

const dbExt = ".db"

var (
	// ErrDatabaseExists is returned when creating a database that is already there.
	ErrDatabaseExists = errors.New("database already exists")
	// ErrDatabaseNotFound is returned for a database missing from the directory.
	ErrDatabaseNotFound = errors.New("database does not exist")
	// ErrInvalidName is returned for names containing path separators.
	ErrInvalidName = errors.New("invalid database name")
)

// Catalog manages the SQLite database files in one directory.
type Catalog struct {
	dir string
}

// NewCatalog creates a catalog rooted at dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Ensure creates the directory if needed.
func (c *Catalog) Ensure() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return &ErrIO{Op: "create directory", Path: c.dir, Cause: err}
	}
	return nil
}

// List returns the database file names, sorted.
func (c *Catalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &ErrIO{Op: "list databases", Path: c.dir, Cause: err}
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), dbExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Path resolves a database name to its file, which must exist.
func (c *Catalog) Path(name string) (string, error) {
	file, err := c.fileName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, file)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDatabaseNotFound, file)
		}
		return "", &ErrIO{Op: "open database", Path: path, Cause: err}
	}
	return path, nil
}

// Create makes an empty database file and returns its path.
func (c *Catalog) Create(name string) (string, error) {
	file, err := c.fileName(name)
	if err != nil {
		return "", err
	}
	if err := c.Ensure(); err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrDatabaseExists, file)
		}
		return "", &ErrIO{Op: "create database", Path: path, Cause: err}
	}
	if err := f.Close(); err != nil {
		return "", &ErrIO{Op: "create database", Path: path, Cause: err}
	}
	return path, nil
}

// Delete removes a database file.
func (c *Catalog) Delete(name string) error {
	path, err := c.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return &ErrIO{Op: "delete database", Path: path, Cause: err}
	}
	return nil
}

// fileName validates name and appends the .db extension when missing.
func (c *Catalog) fileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.HasSuffix(name, dbExt) {
		name += dbExt
	}
	return name, nil
}

// CreateDatabase creates a database file and connects to it.
func (s *Service) CreateDatabase(ctx context.Context, name string) (string, error) {
	path, err := s.catalog.Create(name)
	if err != nil {
		return "", err
	}
	logging.WithFields(ctx, "path", path).Info("database created")
	if err := s.Connect(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// SelectDatabase connects to a database in the catalog.
func (s *Service) SelectDatabase(ctx context.Context, name string) error {
	path, err := s.catalog.Path(name)
	if err != nil {
		return err
	}
	return s.Connect(ctx, path)
}

// DeleteDatabase removes a database file, closing the connection first when
// it is the current one.
func (s *Service) DeleteDatabase(ctx context.Context, name string) error {
	path, err := s.catalog.Path(name)
	if err != nil {
		return err
	}
	if s.Connected() && sameFile(s.DSN(), path) {
		if err := s.Disconnect(); err != nil {
			return &ErrConnection{Cause: err}
		}
	}
	if err := s.catalog.Delete(name); err != nil {
		return err
	}
	logging.WithFields(ctx, "path", path).Info("database deleted")
	return nil
}

// ListDatabases returns the database files in the catalog.
func (s *Service) ListDatabases() ([]string, error) {
	return s.catalog.List()
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
