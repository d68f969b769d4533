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

	"github.com/joacominatel/tabula/internal/format"
	"github.com/joacominatel/tabula/internal/logging"
)

// ErrNoCSVFiles is returned when a batch directory holds no .csv files.
var ErrNoCSVFiles = errors.New("no CSV files found in the directory")

// BatchOptions controls ImportCSVDir.
type BatchOptions struct {
	Recursive  bool
	InferTypes bool
	// AutoUpdate overwrites tables whose name is taken; otherwise the file
	// is saved as "Table N".
	AutoUpdate bool
}

// BatchEntry is the outcome for one file.
type BatchEntry struct {
	Path  string
	Table string
	Err   error
}

// ImportCSVDir loads every CSV file in dir into the connected store, one
// table per file named after the file. A failing file does not stop the
// batch; its error is recorded in the entry.
func (s *Service) ImportCSVDir(ctx context.Context, dir string, opts BatchOptions) ([]BatchEntry, error) {
	if s.current() == nil {
		return nil, &ErrNotConnected{}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &ErrIO{Op: "load csv batch", Path: dir, Cause: err}
	}
	if !info.IsDir() {
		return nil, &ErrIO{Op: "load csv batch", Path: dir, Cause: errors.New("not a directory")}
	}

	files, err := findCSV(dir, opts.Recursive)
	if err != nil {
		return nil, &ErrIO{Op: "load csv batch", Path: dir, Cause: err}
	}
	if len(files) == 0 {
		return nil, ErrNoCSVFiles
	}

	log := logging.WithFields(ctx, "dir", dir)
	log.Info("batch import started", "files", len(files))

	entries := make([]BatchEntry, 0, len(files))
	for _, path := range files {
		entry := BatchEntry{Path: path}
		entry.Table, entry.Err = s.importOne(ctx, path, opts)
		if entry.Err != nil {
			log.Warn("batch file failed", "path", path, "err", entry.Err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) importOne(ctx context.Context, path string, opts BatchOptions) (string, error) {
	t, err := s.ImportFile(ctx, format.CSV, path, format.Options{InferTypes: opts.InferTypes})
	if err != nil {
		return "", err
	}

	save := SaveOptions{OnConflict: Overwrite}
	if !opts.AutoUpdate {
		d := s.current()
		if d == nil {
			return "", &ErrNotConnected{}
		}
		exists, err := d.TableExists(ctx, t.Name())
		if err != nil {
			return "", &ErrQuery{Op: "check table", Cause: err}
		}
		if exists {
			tables, err := s.ListTables(ctx)
			if err != nil {
				return "", err
			}
			save = SaveOptions{OnConflict: Rename, NewName: nextTableName(tables)}
		}
	}

	res, err := s.SaveTable(ctx, t, save)
	if err != nil {
		return "", err
	}
	return res.Name, nil
}

func findCSV(dir string, recursive bool) ([]string, error) {
	var files []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && isCSV(e.Name()) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		if !d.IsDir() && isCSV(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
