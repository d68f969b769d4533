package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joacominatel/tabula/internal/table"
)

// ColumnDef is a column as declared in SQL.
type ColumnDef struct {
	Name    string
	Type    table.Type
	SQLType string
}

// SQLType returns the SQL declaration for a program type.
func SQLType(t table.Type) (string, error) {
	switch t {
	case table.TypeStr:
		return "TEXT", nil
	case table.TypeInt:
		return "INTEGER", nil
	case table.TypeFloat:
		return "REAL", nil
	case table.TypeBool:
		return "BOOLEAN", nil
	}
	return "", fmt.Errorf("%w: %q", table.ErrUnsupportedType, string(t))
}

// ProgramType maps a declared SQL type, including common aliases, to the
// nearest program type. Unknown declarations map to str.
func ProgramType(sqlType string) table.Type {
	s := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL":
		return table.TypeInt
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION",
		"NUMERIC", "DECIMAL":
		return table.TypeFloat
	case "BOOLEAN", "BOOL":
		return table.TypeBool
	}
	return table.TypeStr
}

// ColumnDefs validates and maps every column. It fails on the first
// unsupported type so callers can reject a table before issuing any DDL.
func ColumnDefs(cols []table.Column) ([]ColumnDef, error) {
	if len(cols) == 0 {
		return nil, table.ErrNoColumns
	}
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		st, err := SQLType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		defs[i] = ColumnDef{Name: c.Name, Type: c.Type, SQLType: st}
	}
	return defs, nil
}

// QuoteIdent quotes an identifier for SQLite and PostgreSQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CreateStatement builds CREATE TABLE for the given definitions.
func CreateStatement(name string, defs []ColumnDef) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = QuoteIdent(d.Name) + " " + d.SQLType
	}
	return "CREATE TABLE " + QuoteIdent(name) + " (" + strings.Join(parts, ", ") + ")"
}

// InsertStatement builds a parameterized INSERT; placeholder renders the
// i-th (1-based) bind parameter.
func InsertStatement(name string, defs []ColumnDef, placeholder func(i int) string) string {
	cols := make([]string, len(defs))
	params := make([]string, len(defs))
	for i, d := range defs {
		cols[i] = QuoteIdent(d.Name)
		params[i] = placeholder(i + 1)
	}
	return "INSERT INTO " + QuoteIdent(name) + " (" + strings.Join(cols, ", ") +
		") VALUES (" + strings.Join(params, ", ") + ")"
}

// RowArgs returns the bind arguments for one record. The empty placeholder
// in a non-str column becomes NULL.
func RowArgs(defs []ColumnDef, rec []any) []any {
	args := make([]any, len(defs))
	for i, d := range defs {
		var v any
		if i < len(rec) {
			v = rec[i]
		}
		if table.IsEmpty(v) && d.Type != table.TypeStr {
			args[i] = nil
			continue
		}
		if v == nil {
			v = ""
		}
		args[i] = v
	}
	return args
}

// ConvertValue maps a value read from a store onto a program type. NULL
// becomes the empty placeholder; values that do not fit the column type
// are kept as text.
func ConvertValue(t table.Type, v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		v = string(x)
	case int:
		v = int64(x)
	case int32:
		v = int64(x)
	case int16:
		v = int64(x)
	case float32:
		v = float64(x)
	}

	switch t {
	case table.TypeInt:
		switch x := v.(type) {
		case int64:
			return x
		case float64:
			if x == float64(int64(x)) {
				return int64(x)
			}
			return x
		case bool:
			if x {
				return int64(1)
			}
			return int64(0)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n
			}
			return x
		}
	case table.TypeFloat:
		switch x := v.(type) {
		case float64:
			return x
		case int64:
			return float64(x)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f
			}
			return x
		}
	case table.TypeBool:
		return truthy(v)
	}
	return table.FormatValue(v)
}

// truthy restores BOOLEAN columns, which SQLite stores as 0/1.
func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
		return x != ""
	}
	return v != nil
}

// BuildTable assembles a typed table from raw scanned rows.
func BuildTable(name string, cols []table.Column, raw [][]any) (*table.Table, error) {
	rows := make([]table.Row, 0, len(raw))
	for _, vals := range raw {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			var v any
			if i < len(vals) {
				v = vals[i]
			}
			row[c.Name] = ConvertValue(c.Type, v)
		}
		rows = append(rows, row)
	}
	return table.FromTyped(name, cols, rows)
}
