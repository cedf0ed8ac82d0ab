package migrate_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quillorm/quill"
	"github.com/quillorm/quill/migrate"
)

func newTestRunner(t *testing.T) (*migrate.Runner, *quill.Database, string) {
	t.Helper()

	db, err := quill.NewDatabase("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err := db.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Disconnect() })

	dir := t.TempDir()
	return migrate.NewRunner(db, dir), db, dir
}

func tableExists(t *testing.T, db *quill.Database, name string) bool {
	t.Helper()
	var n int64
	err := db.Get(context.Background(), &n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name)
	if err != nil {
		t.Fatalf("Failed to check table: %v", err)
	}
	return n > 0
}

func TestOperationStatement(t *testing.T) {
	t.Run("sql", func(t *testing.T) {
		op := migrate.Operation{Type: migrate.OpSQL, SQL: "CREATE INDEX idx ON t (a)"}
		stmt, err := op.Statement()
		if err != nil {
			t.Fatalf("Statement failed: %v", err)
		}
		if stmt != "CREATE INDEX idx ON t (a)" {
			t.Errorf("unexpected statement: %s", stmt)
		}
	})

	t.Run("create_table", func(t *testing.T) {
		op := migrate.Operation{
			Type:  migrate.OpCreateTable,
			Table: "user",
			Columns: []migrate.ColumnDef{
				{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{Name: "name", Type: "TEXT", NotNull: true, Unique: true},
				{Name: "active", Type: "BOOLEAN", Default: true},
			},
		}
		stmt, err := op.Statement()
		if err != nil {
			t.Fatalf("Statement failed: %v", err)
		}
		want := "CREATE TABLE IF NOT EXISTS user (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, active BOOLEAN DEFAULT 1)"
		if stmt != want {
			t.Errorf("got %s, want %s", stmt, want)
		}
	})

	t.Run("add_column", func(t *testing.T) {
		op := migrate.Operation{
			Type:   migrate.OpAddColumn,
			Table:  "user",
			Column: &migrate.ColumnDef{Name: "bio", Type: "TEXT", Default: "n/a"},
		}
		stmt, err := op.Statement()
		if err != nil {
			t.Fatalf("Statement failed: %v", err)
		}
		if stmt != "ALTER TABLE user ADD COLUMN bio TEXT DEFAULT 'n/a'" {
			t.Errorf("unexpected statement: %s", stmt)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		op := migrate.Operation{Type: "drop_everything"}
		if _, err := op.Statement(); err == nil {
			t.Fatal("expected error for unknown operation type")
		}
	})

	t.Run("incomplete", func(t *testing.T) {
		for _, op := range []migrate.Operation{
			{Type: migrate.OpSQL},
			{Type: migrate.OpCreateTable, Table: "t"},
			{Type: migrate.OpAddColumn, Table: "t"},
		} {
			if _, err := op.Statement(); err == nil {
				t.Errorf("expected error for %+v", op)
			}
		}
	})
}

func TestCreateMigrationNumbering(t *testing.T) {
	runner, _, dir := newTestRunner(t)

	p1, err := runner.CreateMigration("create_users", nil)
	if err != nil {
		t.Fatalf("Failed to create migration: %v", err)
	}
	if filepath.Base(p1) != "0001_create_users.json" {
		t.Errorf("unexpected name: %s", filepath.Base(p1))
	}

	p2, err := runner.CreateMigration("add_email", nil)
	if err != nil {
		t.Fatalf("Failed to create migration: %v", err)
	}
	if filepath.Base(p2) != "0002_add_email.json" {
		t.Errorf("unexpected name: %s", filepath.Base(p2))
	}

	migrations, err := migrate.Load(dir)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(migrations) != 2 || migrations[0].Name != "0001_create_users" {
		t.Fatalf("unexpected load result: %+v", migrations)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	runner, db, _ := newTestRunner(t)
	ctx := context.Background()

	_, err := runner.CreateMigration("create_users", []migrate.Operation{
		{Type: migrate.OpCreateTable, Table: "user", Columns: []migrate.ColumnDef{
			{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
			{Name: "name", Type: "TEXT", NotNull: true},
		}},
	})
	if err != nil {
		t.Fatalf("Failed to create migration: %v", err)
	}
	_, err = runner.CreateMigration("add_email", []migrate.Operation{
		{Type: migrate.OpAddColumn, Table: "user", Column: &migrate.ColumnDef{Name: "email", Type: "TEXT"}},
	})
	if err != nil {
		t.Fatalf("Failed to create migration: %v", err)
	}

	n, err := runner.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 applied, got %d", n)
	}
	if !tableExists(t, db, "user") {
		t.Fatal("expected user table")
	}

	// Second run sees everything applied and does nothing.
	n, err = runner.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 applied on rerun, got %d", n)
	}

	entries, err := runner.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if !e.Applied {
			t.Errorf("expected %s applied", e.Name)
		}
	}
}

func TestFailedMigrationLeavesNoTrace(t *testing.T) {
	runner, db, dir := newTestRunner(t)
	ctx := context.Background()

	_, err := runner.CreateMigration("broken", []migrate.Operation{
		{Type: migrate.OpCreateTable, Table: "orphan", Columns: []migrate.ColumnDef{
			{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		}},
		{Type: migrate.OpSQL, SQL: "THIS IS NOT SQL"},
	})
	if err != nil {
		t.Fatalf("Failed to create migration: %v", err)
	}

	n, err := runner.Migrate(ctx)
	if err == nil {
		t.Fatal("expected migration failure")
	}
	if !strings.Contains(err.Error(), "0001_broken") {
		t.Errorf("error should name the migration: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 applied, got %d", n)
	}

	// The whole migration rolled back, including the first operation.
	if tableExists(t, db, "orphan") {
		t.Error("partial migration left the orphan table behind")
	}

	applied, err := runner.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected empty tracking table, got %v", applied)
	}

	// Fixing the file and retrying applies cleanly.
	fixed := migrate.Migration{Name: "0001_broken", Operations: []migrate.Operation{
		{Type: migrate.OpCreateTable, Table: "orphan", Columns: []migrate.ColumnDef{
			{Name: "id", Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		}},
	}}
	if _, err := fixed.WriteFile(dir); err != nil {
		t.Fatalf("Failed to rewrite migration: %v", err)
	}

	n, err = runner.Migrate(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied on retry, got %d", n)
	}
	if !tableExists(t, db, "orphan") {
		t.Fatal("expected orphan table after retry")
	}
}
