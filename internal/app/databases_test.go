package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCatalog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "databases")
	c := NewCatalog(dir)

	names, err := c.List()
	if err != nil || len(names) != 0 {
		t.Fatalf("List on missing dir = %v, %v", names, err)
	}

	if _, err := c.Create("sales"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := c.Create("hr.db"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := c.Create("sales"); !errors.Is(err, ErrDatabaseExists) {
		t.Errorf("duplicate create err = %v, want ErrDatabaseExists", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	names, err = c.List()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"hr.db", "sales.db"}) {
		t.Errorf("List = %v", names)
	}

	if err := c.Delete("hr"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete("hr"); !errors.Is(err, ErrDatabaseNotFound) {
		t.Errorf("err = %v, want ErrDatabaseNotFound", err)
	}
}

func TestCatalog_InvalidNames(t *testing.T) {
	c := NewCatalog(t.TempDir())
	tests := []struct {
		name string
		want error
	}{
		{"", ErrEmptyName},
		{"   ", ErrEmptyName},
		{"../escape", ErrInvalidName},
		{`a\b`, ErrInvalidName},
	}
	for _, tt := range tests {
		if _, err := c.Create(tt.name); !errors.Is(err, tt.want) {
			t.Errorf("Create(%q) err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestService_DatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewService(t.TempDir())

	if _, err := s.CreateDatabase(ctx, "one"); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	if !s.Connected() || s.DatabaseName() != "one.db" {
		t.Errorf("Connected = %v, DatabaseName = %q", s.Connected(), s.DatabaseName())
	}

	if _, err := s.Catalog().Create("two"); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectDatabase(ctx, "two"); err != nil {
		t.Fatalf("SelectDatabase failed: %v", err)
	}
	if s.DatabaseName() != "two.db" {
		t.Errorf("DatabaseName = %q, want two.db", s.DatabaseName())
	}

	if err := s.DeleteDatabase(ctx, "two"); err != nil {
		t.Fatalf("DeleteDatabase failed: %v", err)
	}
	if s.Connected() {
		t.Error("still connected after deleting the current database")
	}

	names, err := s.ListDatabases()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"one.db"}) {
		t.Errorf("ListDatabases = %v", names)
	}

	if err := s.SelectDatabase(ctx, "missing"); !errors.Is(err, ErrDatabaseNotFound) {
		t.Errorf("err = %v, want ErrDatabaseNotFound", err)
	}
}
