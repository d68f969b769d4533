// Package table holds the in-memory table model: ordered typed columns,
// name-keyed rows, and the validation and inference rules applied to them.
package table

import (
	"fmt"
	"strings"
)

// Column is a named, typed field shared by all rows.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Row maps column names to values. Values are int64, float64, bool or
// string; the empty string is the placeholder for a missing value.
type Row map[string]any

func (r Row) clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Table is a named collection of columns and rows with a saved flag.
// Every row holds exactly the keys of the current column set.
type Table struct {
	name    string
	columns []Column
	rows    []Row
	saved   bool
}

// New creates an empty, unsaved table.
func New(name string) *Table {
	return &Table{name: name}
}

// FromRecords builds a table from a header and positional records.
// All columns start as str. Blank header cells are named by position
// ("column 3"). Short records are padded with empty values, cells beyond
// the header are dropped.
func FromRecords(name string, header []string, records [][]string) (*Table, error) {
	t := New(name)
	names := make([]string, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("column %d", i+1)
		}
		if t.ColumnIndex(h) >= 0 {
			return nil, fmt.Errorf("header %q: %w", h, ErrDuplicateColumn)
		}
		names[i] = h
		t.columns = append(t.columns, Column{Name: h, Type: TypeStr})
	}

	t.rows = make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(names))
		for i, h := range names {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// FromTyped builds a table from typed columns and already-typed rows.
// Rows are normalised to hold exactly the column keys.
func FromTyped(name string, columns []Column, rows []Row) (*Table, error) {
	t := New(name)
	for _, c := range columns {
		if !c.Type.Valid() {
			return nil, fmt.Errorf("column %q: %w: %q", c.Name, ErrUnsupportedType, string(c.Type))
		}
		if t.ColumnIndex(c.Name) >= 0 {
			return nil, fmt.Errorf("column %q: %w", c.Name, ErrDuplicateColumn)
		}
		t.columns = append(t.columns, c)
	}
	t.rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		row := make(Row, len(columns))
		for _, c := range columns {
			v, ok := r[c.Name]
			if !ok || v == nil {
				v = ""
			}
			row[c.Name] = v
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Saved reports whether the table matches its last persisted copy.
func (t *Table) Saved() bool { return t.saved }

// MarkSaved records a successful persistence operation.
func (t *Table) MarkSaved() { t.saved = true }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// Columns returns a copy of the column definitions in order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column returns the column at index i.
func (t *Table) Column(i int) (Column, error) {
	if i < 0 || i >= len(t.columns) {
		return Column{}, fmt.Errorf("column %d: %w", i+1, ErrIndexOutOfRange)
	}
	return t.columns[i], nil
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Header returns the column names in order.
func (t *Table) Header() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// Rows returns copies of all rows.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.clone()
	}
	return out
}

// Cell returns the value at row r, column c (both 0-based).
func (t *Table) Cell(r, c int) (any, error) {
	if r < 0 || r >= len(t.rows) || c < 0 || c >= len(t.columns) {
		return nil, fmt.Errorf("cell (%d,%d): %w", r+1, c+1, ErrIndexOutOfRange)
	}
	return t.rows[r][t.columns[c].Name], nil
}

// Records returns each row's values in column order. A missing key yields
// the empty placeholder.
func (t *Table) Records() [][]any {
	out := make([][]any, len(t.rows))
	for i, r := range t.rows {
		rec := make([]any, len(t.columns))
		for j, c := range t.columns {
			v, ok := r[c.Name]
			if !ok || v == nil {
				v = ""
			}
			rec[j] = v
		}
		out[i] = rec
	}
	return out
}

// Clone returns a deep copy, including the saved flag.
func (t *Table) Clone() *Table {
	return &Table{
		name:    t.name,
		columns: t.Columns(),
		rows:    t.Rows(),
		saved:   t.saved,
	}
}

// Rename sets the table name.
func (t *Table) Rename(name string) {
	t.name = name
	t.saved = false
}

// Clear drops all columns and rows. Name and saved flag are kept.
func (t *Table) Clear() {
	t.columns = nil
	t.rows = nil
}

// AddColumn appends a column and back-fills existing rows with "".
func (t *Table) AddColumn(name string, typ Type) error {
	if !typ.Valid() {
		return fmt.Errorf("add column %q: %w: %q", name, ErrUnsupportedType, string(typ))
	}
	if t.ColumnIndex(name) >= 0 {
		return fmt.Errorf("add column %q: %w", name, ErrDuplicateColumn)
	}
	t.columns = append(t.columns, Column{Name: name, Type: typ})
	for _, r := range t.rows {
		r[name] = ""
	}
	t.saved = false
	return nil
}

// RemoveColumn deletes the named column and its key from every row.
func (t *Table) RemoveColumn(name string) error {
	i := t.ColumnIndex(name)
	if i < 0 {
		return fmt.Errorf("remove column %q: %w", name, ErrUnknownColumn)
	}
	t.columns = append(t.columns[:i:i], t.columns[i+1:]...)
	for _, r := range t.rows {
		delete(r, name)
	}
	t.saved = false
	return nil
}

// RenameColumn renames a column and re-keys every row.
func (t *Table) RenameColumn(oldName, newName string) error {
	i := t.ColumnIndex(oldName)
	if i < 0 {
		return fmt.Errorf("rename column %q: %w", oldName, ErrUnknownColumn)
	}
	if t.ColumnIndex(newName) >= 0 {
		return fmt.Errorf("rename column %q to %q: %w", oldName, newName, ErrDuplicateColumn)
	}
	t.columns[i].Name = newName
	for _, r := range t.rows {
		v, ok := r[oldName]
		if !ok {
			v = ""
		}
		delete(r, oldName)
		r[newName] = v
	}
	t.saved = false
	return nil
}

// ChangeColumnType sets the type of column i and converts its stored values.
// Conversion is all-or-nothing: if any non-empty value does not fit the new
// type, nothing changes and the first offending cell is reported.
func (t *Table) ChangeColumnType(i int, typ Type) error {
	if i < 0 || i >= len(t.columns) {
		return fmt.Errorf("change type of column %d: %w", i+1, ErrIndexOutOfRange)
	}
	if !typ.Valid() {
		return fmt.Errorf("change type: %w: %q", ErrUnsupportedType, string(typ))
	}
	name := t.columns[i].Name

	converted := make([]any, len(t.rows))
	for ri, r := range t.rows {
		v := r[name]
		if IsEmpty(v) {
			converted[ri] = ""
			continue
		}
		raw := FormatValue(v)
		nv, err := Coerce(typ, raw)
		if err != nil {
			return &ValidationError{Column: name, Type: typ, Value: raw, Row: ri + 1}
		}
		converted[ri] = nv
	}

	t.columns[i].Type = typ
	for ri, r := range t.rows {
		r[name] = converted[ri]
	}
	t.saved = false
	return nil
}

// ValidateCell coerces raw input for column i without changing the table.
func (t *Table) ValidateCell(i int, raw string) (any, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, fmt.Errorf("column %d: %w", i+1, ErrIndexOutOfRange)
	}
	c := t.columns[i]
	v, err := Coerce(c.Type, raw)
	if err != nil {
		return nil, &ValidationError{Column: c.Name, Type: c.Type, Value: raw}
	}
	return v, nil
}

// AddRow validates one raw value per column and appends the row only if
// every value passes.
func (t *Table) AddRow(values []string) error {
	if len(t.columns) == 0 {
		return fmt.Errorf("add row: %w", ErrNoColumns)
	}
	if len(values) != len(t.columns) {
		return fmt.Errorf("add row: got %d values for %d columns: %w", len(values), len(t.columns), ErrArity)
	}
	row := make(Row, len(t.columns))
	for i, raw := range values {
		v, err := t.ValidateCell(i, raw)
		if err != nil {
			return err
		}
		row[t.columns[i].Name] = v
	}
	t.rows = append(t.rows, row)
	t.saved = false
	return nil
}

// EditCell replaces the value at row r, column c after validation.
func (t *Table) EditCell(r, c int, raw string) error {
	if r < 0 || r >= len(t.rows) || c < 0 || c >= len(t.columns) {
		return fmt.Errorf("edit cell (%d,%d): %w", r+1, c+1, ErrIndexOutOfRange)
	}
	v, err := t.ValidateCell(c, raw)
	if err != nil {
		return err
	}
	t.rows[r][t.columns[c].Name] = v
	t.saved = false
	return nil
}

// RemoveRow deletes row r.
func (t *Table) RemoveRow(r int) error {
	if r < 0 || r >= len(t.rows) {
		return fmt.Errorf("remove row %d: %w", r+1, ErrIndexOutOfRange)
	}
	t.rows = append(t.rows[:r:r], t.rows[r+1:]...)
	t.saved = false
	return nil
}

// InferColumnTypes samples the first row with any non-empty value and
// relabels each column whose sampled value is non-empty. Cells of relabelled
// columns that match the inferred pattern are converted to the typed value.
// It returns the number of columns whose type changed.
func (t *Table) InferColumnTypes() (int, error) {
	var sample Row
	for _, r := range t.rows {
		if rowHasData(r) {
			sample = r
			break
		}
	}
	if sample == nil {
		return 0, ErrNothingToInfer
	}

	changed := 0
	for i, c := range t.columns {
		v := sample[c.Name]
		if IsEmpty(v) {
			continue
		}
		typ := Infer(FormatValue(v))
		if typ != c.Type {
			changed++
		}
		t.columns[i].Type = typ
		if typ == TypeStr {
			continue
		}
		for _, r := range t.rows {
			s, ok := r[c.Name].(string)
			if !ok || s == "" {
				continue
			}
			if nv, ok := convertInferred(typ, s); ok {
				r[c.Name] = nv
			}
		}
	}
	if changed > 0 {
		t.saved = false
	}
	return changed, nil
}

func rowHasData(r Row) bool {
	for _, v := range r {
		if !IsEmpty(v) {
			return true
		}
	}
	return false
}
