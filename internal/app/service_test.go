package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/joacominatel/tabula/internal/format"
	"github.com/joacominatel/tabula/internal/table"
)

func connectedService(t *testing.T) *Service {
	t.Helper()
	s := NewService(t.TempDir())
	if _, err := s.CreateDatabase(context.Background(), "test"); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	t.Cleanup(func() { s.Disconnect() })
	return s
}

func peopleTable(t *testing.T, name string, rows ...[]string) *table.Table {
	t.Helper()
	tbl := table.New(name)
	if err := tbl.AddColumn("name", table.TypeStr); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddColumn("age", table.TypeInt); err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if err := tbl.AddRow(r); err != nil {
			t.Fatal(err)
		}
	}
	return tbl
}

func TestSaveTable_NotConnected(t *testing.T) {
	s := NewService(t.TempDir())
	_, err := s.SaveTable(context.Background(), peopleTable(t, "p"), SaveOptions{})
	var nc *ErrNotConnected
	if !errors.As(err, &nc) {
		t.Errorf("err = %v, want *ErrNotConnected", err)
	}
}

func TestSaveTable_NoColumns(t *testing.T) {
	s := connectedService(t)
	_, err := s.SaveTable(context.Background(), table.New("empty"), SaveOptions{})
	if !errors.Is(err, table.ErrNoColumns) {
		t.Errorf("err = %v, want ErrNoColumns", err)
	}
}

func TestSaveTable_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	s := connectedService(t)
	tbl := peopleTable(t, "people", []string{"Alice", "30"})

	res, err := s.SaveTable(ctx, tbl, SaveOptions{})
	if err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}
	if res.Name != "people" || res.Replaced || res.Renamed || res.Rows != 1 {
		t.Errorf("SaveResult = %+v", res)
	}
	if !tbl.Saved() {
		t.Error("table not marked saved")
	}

	loaded, err := s.LoadTable(ctx, "people")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if !loaded.Saved() {
		t.Error("loaded table should start saved")
	}
	if !reflect.DeepEqual(loaded.Records(), tbl.Records()) {
		t.Errorf("Records() = %v, want %v", loaded.Records(), tbl.Records())
	}
}

func TestSaveTable_Conflict(t *testing.T) {
	ctx := context.Background()
	s := connectedService(t)
	if _, err := s.SaveTable(ctx, peopleTable(t, "people", []string{"Alice", "30"}), SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	t.Run("ask", func(t *testing.T) {
		tbl := peopleTable(t, "people", []string{"Bob", "25"})
		_, err := s.SaveTable(ctx, tbl, SaveOptions{OnConflict: Ask})
		name, ok := IsConflict(err)
		if !ok || name != "people" {
			t.Fatalf("err = %v, want *ErrTableExists{people}", err)
		}
		if tbl.Saved() {
			t.Error("table marked saved after conflict")
		}
	})

	t.Run("abort", func(t *testing.T) {
		_, err := s.SaveTable(ctx, peopleTable(t, "people"), SaveOptions{OnConflict: Abort})
		if !errors.Is(err, ErrAborted) {
			t.Errorf("err = %v, want ErrAborted", err)
		}
	})

	t.Run("rename empty", func(t *testing.T) {
		tbl := peopleTable(t, "people")
		_, err := s.SaveTable(ctx, tbl, SaveOptions{OnConflict: Rename, NewName: "  "})
		if !errors.Is(err, ErrEmptyName) {
			t.Errorf("err = %v, want ErrEmptyName", err)
		}
		if tbl.Name() != "people" {
			t.Errorf("Name() = %q after failed rename", tbl.Name())
		}
	})

	t.Run("rename", func(t *testing.T) {
		tbl := peopleTable(t, "people", []string{"Carol", "41"})
		res, err := s.SaveTable(ctx, tbl, SaveOptions{OnConflict: Rename, NewName: "people_v2"})
		if err != nil {
			t.Fatalf("SaveTable failed: %v", err)
		}
		if !res.Renamed || tbl.Name() != "people_v2" || !tbl.Saved() {
			t.Errorf("res = %+v, name = %q, saved = %v", res, tbl.Name(), tbl.Saved())
		}
	})

	t.Run("rename onto existing", func(t *testing.T) {
		tbl := peopleTable(t, "people")
		_, err := s.SaveTable(ctx, tbl, SaveOptions{OnConflict: Rename, NewName: "people_v2"})
		var qe *ErrQuery
		if !errors.As(err, &qe) {
			t.Fatalf("err = %v, want *ErrQuery", err)
		}
		if tbl.Name() != "people" || tbl.Saved() {
			t.Errorf("table changed after failed save: name %q saved %v", tbl.Name(), tbl.Saved())
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		tbl := peopleTable(t, "people", []string{"Dan", "50"}, []string{"Eve", "22"})
		res, err := s.SaveTable(ctx, tbl, SaveOptions{OnConflict: Overwrite})
		if err != nil {
			t.Fatalf("SaveTable failed: %v", err)
		}
		if !res.Replaced {
			t.Error("Replaced = false")
		}
		loaded, err := s.LoadTable(ctx, "people")
		if err != nil {
			t.Fatal(err)
		}
		if loaded.NumRows() != 2 {
			t.Errorf("NumRows = %d, want 2", loaded.NumRows())
		}
	})

	tables, err := s.ListTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tables, []string{"people", "people_v2"}) {
		t.Errorf("ListTables = %v", tables)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := connectedService(t)
	for _, tbl := range []*table.Table{
		peopleTable(t, "staff", []string{"Alice", "30"}, []string{"Malik", "41"}),
		peopleTable(t, "guests", []string{"ALINA", "19"}),
	} {
		if _, err := s.SaveTable(ctx, tbl, SaveOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := s.Search(ctx, "ali", "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []Match{
		{Table: "guests", Row: 1, Column: "name", Type: table.TypeStr, Value: "ALINA"},
		{Table: "staff", Row: 1, Column: "name", Type: table.TypeStr, Value: "Alice"},
		{Table: "staff", Row: 2, Column: "name", Type: table.TypeStr, Value: "Malik"},
	}
	if !reflect.DeepEqual(matches, want) {
		t.Errorf("Search = %+v, want %+v", matches, want)
	}

	matches, err = s.Search(ctx, "41", "staff")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Type != table.TypeInt {
		t.Errorf("Search(41) = %+v", matches)
	}

	if _, err := s.Search(ctx, " ", ""); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestDeleteTable(t *testing.T) {
	ctx := context.Background()
	s := connectedService(t)
	if _, err := s.SaveTable(ctx, peopleTable(t, "tmp"), SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTable(ctx, "tmp"); err != nil {
		t.Fatalf("DeleteTable failed: %v", err)
	}
	if err := s.DeleteTable(ctx, "tmp"); err == nil {
		t.Error("deleting a missing table succeeded")
	}
}

func TestImportExportFile(t *testing.T) {
	ctx := context.Background()
	s := NewService(t.TempDir())
	tbl := peopleTable(t, "people", []string{"Alice", "30"})
	path := filepath.Join(t.TempDir(), "people.csv")

	if err := s.ExportFile(ctx, tbl, format.CSV, path); err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}
	if !tbl.Saved() {
		t.Error("export did not mark the table saved")
	}

	got, err := s.ImportFile(ctx, format.CSV, path, format.Options{InferTypes: true})
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if !reflect.DeepEqual(got.Columns(), tbl.Columns()) {
		t.Errorf("Columns() = %v, want %v", got.Columns(), tbl.Columns())
	}

	_, err = s.ImportFile(ctx, format.CSV, filepath.Join(t.TempDir(), "missing.csv"), format.Options{})
	var ioErr *ErrIO
	if !errors.As(err, &ioErr) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want *ErrIO wrapping ErrNotExist", err)
	}

	if err := s.ExportFile(ctx, table.New("x"), format.CSV, path); !errors.Is(err, table.ErrNoColumns) {
		t.Errorf("err = %v, want ErrNoColumns", err)
	}
}
