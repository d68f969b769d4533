// Package format converts tables to and from file representations:
// CSV, JSON, Excel (xlsx), OpenDocument spreadsheets (ods) and PDF.
package format

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joacominatel/tabula/internal/table"
)

// Format identifies a file representation.
type Format int

const (
	CSV Format = iota
	JSON
	XLSX
	ODS
	PDF
)

func (f Format) String() string {
	switch f {
	case CSV:
		return "csv"
	case JSON:
		return "json"
	case XLSX:
		return "xlsx"
	case ODS:
		return "ods"
	case PDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// ErrEmptySource is returned when a source holds no header row or table.
var ErrEmptySource = errors.New("no table data found")

// ErrUnknownFormat is returned for unrecognised file extensions.
var ErrUnknownFormat = errors.New("unknown file format")

// Options controls import behaviour.
type Options struct {
	// InferTypes upgrades str columns by sampling the first data row.
	InferTypes bool
}

// ParseFormat resolves a format name such as "csv" or "xl".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "xlsx", "xl", "excel":
		return XLSX, nil
	case "ods":
		return ODS, nil
	case "pdf":
		return PDF, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// TableName derives a table name from a file path: base name without
// extension.
func TableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Import reads the file at path in format f.
func Import(f Format, path string, opts Options) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var (
		t   *table.Table
		err error
	)
	name := TableName(path)
	switch f {
	case CSV:
		t, err = readCSVFile(name, path)
	case JSON:
		// JSON carries its own column types; inference does not apply.
		return readJSONFile(name, path)
	case XLSX:
		t, err = readXLSX(name, path)
	case ODS:
		t, err = readODS(name, path)
	case PDF:
		t, err = readPDF(name, path)
	default:
		return nil, fmt.Errorf("import: %w", ErrUnknownFormat)
	}
	if err != nil {
		return nil, err
	}

	if opts.InferTypes {
		if _, err := t.InferColumnTypes(); err != nil && !errors.Is(err, table.ErrNothingToInfer) {
			return nil, err
		}
	}
	slog.Debug("imported table", "format", f.String(), "path", path,
		"columns", t.NumColumns(), "rows", t.NumRows())
	return t, nil
}

// ImportPath imports a file choosing the format from its extension.
func ImportPath(path string, opts Options) (*table.Table, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return Import(f, path, opts)
}

// Export writes t to path in format f. The destination is replaced
// atomically; on error it is left untouched.
func Export(f Format, t *table.Table, path string) error {
	var write func(io.Writer, *table.Table) error
	switch f {
	case CSV:
		write = WriteCSV
	case JSON:
		write = WriteJSON
	case XLSX:
		write = WriteXLSX
	case ODS:
		write = WriteODS
	case PDF:
		write = WritePDF
	default:
		return fmt.Errorf("export: %w", ErrUnknownFormat)
	}

	if err := writeAtomic(path, func(w io.Writer) error { return write(w, t) }); err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}
	slog.Debug("exported table", "format", f.String(), "path", path, "rows", t.NumRows())
	return nil
}

// writeAtomic writes to a temporary sibling file and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
