package format

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/joacominatel/tabula/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New("people")
	cols := []table.Column{
		{Name: "name", Type: table.TypeStr},
		{Name: "age", Type: table.TypeInt},
		{Name: "score", Type: table.TypeFloat},
		{Name: "active", Type: table.TypeBool},
	}
	for _, c := range cols {
		if err := tbl.AddColumn(c.Name, c.Type); err != nil {
			t.Fatalf("AddColumn(%s) failed: %v", c.Name, err)
		}
	}
	for _, vals := range [][]string{
		{"Alice", "30", "1.5", "true"},
		{"Bob", "25", "2.25", "false"},
		{"Carol, Jr.", "41", "0.75", "true"},
	} {
		if err := tbl.AddRow(vals); err != nil {
			t.Fatalf("AddRow(%v) failed: %v", vals, err)
		}
	}
	return tbl
}

func assertSameTable(t *testing.T, got, want *table.Table) {
	t.Helper()
	if !reflect.DeepEqual(got.Columns(), want.Columns()) {
		t.Fatalf("Columns() = %v, want %v", got.Columns(), want.Columns())
	}
	if !reflect.DeepEqual(got.Records(), want.Records()) {
		t.Fatalf("Records() = %v, want %v", got.Records(), want.Records())
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{CSV, JSON, XLSX, ODS} {
		t.Run(f.String(), func(t *testing.T) {
			want := sampleTable(t)
			path := filepath.Join(t.TempDir(), "people"+f.Ext())

			if err := Export(f, want, path); err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			got, err := ImportPath(path, Options{InferTypes: true})
			if err != nil {
				t.Fatalf("ImportPath failed: %v", err)
			}
			if got.Name() != "people" {
				t.Errorf("Name() = %q, want %q", got.Name(), "people")
			}
			assertSameTable(t, got, want)
		})
	}
}

func TestImport_NoInference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Import(CSV, path, Options{})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	for _, c := range got.Columns() {
		if c.Type != table.TypeStr {
			t.Errorf("column %s type = %s, want str", c.Name, c.Type)
		}
	}
	if v, _ := got.Cell(0, 0); v != "1" {
		t.Errorf("Cell(0,0) = %#v, want \"1\"", v)
	}
}

func TestReadCSV(t *testing.T) {
	t.Run("ragged rows", func(t *testing.T) {
		got, err := ReadCSV("r", strings.NewReader("a,b,c\n1\n1,2,3,4\n"))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}
		want := [][]any{{"1", "", ""}, {"1", "2", "3"}}
		if !reflect.DeepEqual(got.Records(), want) {
			t.Errorf("Records() = %v, want %v", got.Records(), want)
		}
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadCSV("e", strings.NewReader(""))
		if !errors.Is(err, ErrEmptySource) {
			t.Errorf("err = %v, want ErrEmptySource", err)
		}
	})

	t.Run("header only", func(t *testing.T) {
		got, err := ReadCSV("h", strings.NewReader("x,y\n"))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}
		if got.NumColumns() != 2 || got.NumRows() != 0 {
			t.Errorf("got %d columns, %d rows; want 2, 0", got.NumColumns(), got.NumRows())
		}
	})
}

func TestReadJSON(t *testing.T) {
	src := `{
		"columns": [{"name": "id", "type": "int"}, {"name": "ok", "type": "bool"}, {"name": "note", "type": "str"}],
		"rows": [{"id": 7, "ok": true, "note": "x"}, {"id": null, "ok": false}]
	}`
	got, err := ReadJSON("doc", strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	want := [][]any{{int64(7), true, "x"}, {"", false, ""}}
	if !reflect.DeepEqual(got.Records(), want) {
		t.Errorf("Records() = %#v, want %#v", got.Records(), want)
	}

	_, err = ReadJSON("bad", strings.NewReader(`{"columns":[{"name":"a","type":"date"}],"rows":[]}`))
	if !errors.Is(err, table.ErrUnsupportedType) {
		t.Errorf("unknown type err = %v, want ErrUnsupportedType", err)
	}
}

func TestWriteJSON_Shape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleTable(t)); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"columns": [`, `"type": "float"`, `"age": 30`, `"active": true`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON_RowKeysInColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleTable(t)); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	out := buf.String()
	rows := out[strings.Index(out, `"rows"`):]

	last := -1
	for _, key := range []string{`"name": "Alice"`, `"age": 30`, `"score": 1.5`, `"active": true`} {
		i := strings.Index(rows, key)
		if i < 0 {
			t.Fatalf("rows missing %q:\n%s", key, rows)
		}
		if i < last {
			t.Errorf("%s written out of column order:\n%s", key, rows)
		}
		last = i
	}

	got, err := ReadJSON("people", strings.NewReader(out))
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	assertSameTable(t, got, sampleTable(t))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"csv", CSV, false},
		{".JSON", JSON, false},
		{"xl", XLSX, false},
		{"excel", XLSX, false},
		{"ods", ODS, false},
		{"pdf", PDF, false},
		{"txt", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseFormat(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestTableName(t *testing.T) {
	if got := TableName("/tmp/data/sales.2024.csv"); got != "sales.2024" {
		t.Errorf("TableName = %q, want %q", got, "sales.2024")
	}
}

func TestExport_AtomicOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.csv")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := writeAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("writeAtomic err = %v, want boom", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("destination = %q, want untouched", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the destination", len(entries))
	}
}

func TestImport_MissingFile(t *testing.T) {
	_, err := Import(CSV, filepath.Join(t.TempDir(), "nope.csv"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
