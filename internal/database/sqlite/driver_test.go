package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/joacominatel/tabula/internal/database"
	"github.com/joacominatel/tabula/internal/table"
)

func openTemp(t *testing.T) *Driver {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	d := New()
	if err := d.Connect(context.Background(), path); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func typedTable(t *testing.T, name string, rows ...[]string) *table.Table {
	t.Helper()
	tbl := table.New(name)
	for _, c := range []table.Column{
		{Name: "name", Type: table.TypeStr},
		{Name: "age", Type: table.TypeInt},
		{Name: "score", Type: table.TypeFloat},
		{Name: "active", Type: table.TypeBool},
	} {
		if err := tbl.AddColumn(c.Name, c.Type); err != nil {
			t.Fatal(err)
		}
	}
	for _, r := range rows {
		if err := tbl.AddRow(r); err != nil {
			t.Fatalf("AddRow(%v) failed: %v", r, err)
		}
	}
	return tbl
}

func TestConnect_MissingFile(t *testing.T) {
	err := New().Connect(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestReplaceTable_RoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)
	src := typedTable(t, "people", []string{"Alice", "30", "1.5", "true"}, []string{"Bob", "25", "2", "false"})

	if err := d.ReplaceTable(ctx, "people", src, false); err != nil {
		t.Fatalf("ReplaceTable failed: %v", err)
	}

	got, err := d.SelectAll(ctx, "people")
	if err != nil {
		t.Fatalf("SelectAll failed: %v", err)
	}
	if !reflect.DeepEqual(got.Columns(), src.Columns()) {
		t.Errorf("Columns() = %v, want %v", got.Columns(), src.Columns())
	}
	want := [][]any{
		{"Alice", int64(30), 1.5, true},
		{"Bob", int64(25), 2.0, false},
	}
	if !reflect.DeepEqual(got.Records(), want) {
		t.Errorf("Records() = %#v, want %#v", got.Records(), want)
	}
}

func TestReplaceTable_OverwriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	first := typedTable(t, "t", []string{"a", "1", "1.0", "true"}, []string{"b", "2", "2.0", "true"})
	second := typedTable(t, "t", []string{"z", "9", "9.5", "false"})

	if err := d.ReplaceTable(ctx, "t", first, false); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := d.ReplaceTable(ctx, "t", second, true); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	tables, err := d.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tables, []string{"t"}) {
		t.Errorf("ListTables = %v, want [t]", tables)
	}
	got, err := d.SelectAll(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	if got.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", got.NumRows())
	}
	if v, _ := got.Cell(0, 0); v != "z" {
		t.Errorf("Cell(0,0) = %#v, want z", v)
	}
}

func TestReplaceTable_ExistingWithoutDrop(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)
	tbl := typedTable(t, "t", []string{"a", "1", "1.0", "true"})

	if err := d.ReplaceTable(ctx, "t", tbl, false); err != nil {
		t.Fatal(err)
	}
	if err := d.ReplaceTable(ctx, "t", tbl, false); err == nil {
		t.Fatal("second create without drop succeeded")
	}
	got, err := d.SelectAll(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	if got.NumRows() != 1 {
		t.Errorf("NumRows = %d after failed create, want 1", got.NumRows())
	}
}

func TestReplaceTable_NoColumns(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if err := d.ReplaceTable(ctx, "empty", table.New("empty"), false); !errors.Is(err, table.ErrNoColumns) {
		t.Errorf("err = %v, want ErrNoColumns", err)
	}
	if ok, _ := d.TableExists(ctx, "empty"); ok {
		t.Error("table created despite error")
	}
}

func TestNullPlaceholders(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	tbl := typedTable(t, "n", []string{"a", "1", "1.5", "true"})
	if err := tbl.AddColumn("extra", table.TypeInt); err != nil {
		t.Fatal(err)
	}
	if err := d.ReplaceTable(ctx, "n", tbl, false); err != nil {
		t.Fatal(err)
	}

	var isNull bool
	if err := d.db.QueryRowContext(ctx, `SELECT "extra" IS NULL FROM "n"`).Scan(&isNull); err != nil {
		t.Fatal(err)
	}
	if !isNull {
		t.Error("empty int placeholder was not stored as NULL")
	}

	got, err := d.SelectAll(ctx, "n")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := got.Cell(0, 4); v != "" {
		t.Errorf("NULL read back as %#v, want \"\"", v)
	}
}

func TestDropTable(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if err := d.DropTable(ctx, "nope"); !errors.Is(err, database.ErrTableNotFound) {
		t.Errorf("err = %v, want ErrTableNotFound", err)
	}

	tbl := typedTable(t, "gone")
	if err := d.ReplaceTable(ctx, "gone", tbl, false); err != nil {
		t.Fatal(err)
	}
	if err := d.DropTable(ctx, "gone"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if ok, _ := d.TableExists(ctx, "gone"); ok {
		t.Error("table still exists after drop")
	}
}

func TestTableColumns_Aliases(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if _, err := d.db.ExecContext(ctx, `CREATE TABLE legacy (id BIGINT, price NUMERIC(10,2), label VARCHAR(20), flag BOOL, data BLOB)`); err != nil {
		t.Fatal(err)
	}
	cols, err := d.TableColumns(ctx, "legacy")
	if err != nil {
		t.Fatal(err)
	}
	want := []table.Column{
		{Name: "id", Type: table.TypeInt},
		{Name: "price", Type: table.TypeFloat},
		{Name: "label", Type: table.TypeStr},
		{Name: "flag", Type: table.TypeBool},
		{Name: "data", Type: table.TypeStr},
	}
	if !reflect.DeepEqual(cols, want) {
		t.Errorf("TableColumns = %v, want %v", cols, want)
	}

	if _, err := d.TableColumns(ctx, "missing"); !errors.Is(err, database.ErrTableNotFound) {
		t.Errorf("err = %v, want ErrTableNotFound", err)
	}
}

func TestNotConnected(t *testing.T) {
	d := New()
	if _, err := d.ListTables(context.Background()); !errors.Is(err, database.ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close on unconnected driver = %v", err)
	}
}
