package quill_test

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quillorm/quill"
	"github.com/quillorm/quill/fields"
)

// newTestDB opens a fresh in-memory database per test.
func newTestDB(t *testing.T) *quill.Database {
	t.Helper()

	db, err := quill.NewDatabase("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if err := db.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Disconnect(); err != nil {
			t.Errorf("Failed to disconnect: %v", err)
		}
	})
	return db
}

// newUserSpec declares the schema shared by most tests. Each call returns a
// fresh spec so database bindings never leak between tests.
func newUserSpec(t *testing.T) *quill.Spec {
	t.Helper()

	spec, err := quill.NewSpec("User").
		Field("id", fields.Auto()).
		Field("name", fields.Char(fields.MaxLength(100), fields.Required())).
		Field("age", fields.Integer(fields.MinValue(0), fields.MaxValue(150))).
		Field("email", fields.Email()).
		Field("active", fields.Bool(fields.Default(true))).
		Build()
	if err != nil {
		t.Fatalf("Failed to build spec: %v", err)
	}
	return spec
}

// newBoundUserSpec returns the user spec bound to a fresh database with its
// table created.
func newBoundUserSpec(t *testing.T) (*quill.Spec, *quill.Database) {
	t.Helper()

	db := newTestDB(t)
	spec := newUserSpec(t)
	spec.Bind(db)
	if err := db.CreateTable(context.Background(), spec); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return spec, db
}
