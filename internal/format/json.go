package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/joacominatel/tabula/internal/table"
)

// document is the JSON shape as read.
type document struct {
	Columns []table.Column   `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// outDocument keeps row keys in column order when written.
type outDocument struct {
	Columns []table.Column `json:"columns"`
	Rows    []orderedRow   `json:"rows"`
}

type orderedRow struct {
	columns []table.Column
	row     table.Row
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.row[c.Name])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// WriteJSON writes {"columns": [...], "rows": [...]} indented, each row's
// keys in column order.
func WriteJSON(w io.Writer, t *table.Table) error {
	cols := t.Columns()
	doc := outDocument{Columns: cols, Rows: make([]orderedRow, 0, t.NumRows())}
	for _, r := range t.Rows() {
		doc.Rows = append(doc.Rows, orderedRow{columns: cols, row: r})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ReadJSON parses a document written by WriteJSON. Declared column types
// are restored and values converted to match them.
func ReadJSON(name string, r io.Reader) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if len(doc.Columns) == 0 {
		return nil, fmt.Errorf("json: %w", ErrEmptySource)
	}

	rows := make([]table.Row, 0, len(doc.Rows))
	for i, raw := range doc.Rows {
		row := make(table.Row, len(doc.Columns))
		for _, c := range doc.Columns {
			v, err := jsonValue(c.Type, raw[c.Name])
			if err != nil {
				return nil, fmt.Errorf("json row %d, column %q: %w", i+1, c.Name, err)
			}
			row[c.Name] = v
		}
		rows = append(rows, row)
	}
	return table.FromTyped(name, doc.Columns, rows)
}

func readJSONFile(name, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()
	return ReadJSON(name, f)
}

func jsonValue(typ table.Type, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		if x == "" || typ == table.TypeStr {
			return x, nil
		}
		return table.Coerce(typ, x)
	case bool:
		if typ == table.TypeBool {
			return x, nil
		}
		return table.FormatValue(x), nil
	case json.Number:
		switch typ {
		case table.TypeInt:
			if n, err := x.Int64(); err == nil {
				return n, nil
			}
			f, err := x.Float64()
			if err != nil || f != math.Trunc(f) {
				return nil, fmt.Errorf("%w: %s is not an int", table.ErrValidation, x)
			}
			return int64(f), nil
		case table.TypeFloat:
			return x.Float64()
		}
		return x.String(), nil
	}
	return nil, fmt.Errorf("%w: unexpected %T", table.ErrValidation, v)
}
