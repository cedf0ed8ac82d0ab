package quill_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/quillorm/quill"
	"github.com/quillorm/quill/fields"
)

func TestCreateTableDDL(t *testing.T) {
	db, mock := newMockDB(t)
	spec := newUserSpec(t)

	want := "CREATE TABLE IF NOT EXISTS user (" +
		"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
		"name TEXT NOT NULL, " +
		"age INTEGER, " +
		"email TEXT, " +
		"active BOOLEAN DEFAULT 1)"
	mock.ExpectExec(regexp.QuoteMeta(want)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.CreateTable(context.Background(), spec); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
}

func TestCreateTableSynthesizesKey(t *testing.T) {
	db, mock := newMockDB(t)

	spec, err := quill.NewSpec("Tag").
		Field("label", fields.Char(fields.MaxLength(50), fields.Required(), fields.Unique())).
		Field("weight", fields.Float(fields.Default(1.5))).
		Build()
	if err != nil {
		t.Fatalf("Failed to build spec: %v", err)
	}

	want := "CREATE TABLE IF NOT EXISTS tag (" +
		"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
		"label TEXT NOT NULL UNIQUE, " +
		"weight REAL DEFAULT 1.5)"
	mock.ExpectExec(regexp.QuoteMeta(want)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.CreateTable(context.Background(), spec); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
}

func TestCreateTableQuotesStringDefaults(t *testing.T) {
	db, mock := newMockDB(t)

	spec, err := quill.NewSpec("Note").
		Field("status", fields.Char(fields.Default("it's new"))).
		Build()
	if err != nil {
		t.Fatalf("Failed to build spec: %v", err)
	}

	want := "CREATE TABLE IF NOT EXISTS note (" +
		"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
		"status TEXT DEFAULT 'it''s new')"
	mock.ExpectExec(regexp.QuoteMeta(want)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.CreateTable(context.Background(), spec); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
}

func TestDropTables(t *testing.T) {
	db, mock := newMockDB(t)
	users := newUserSpec(t)

	tags, err := quill.NewSpec("Tag").
		Field("label", fields.Char()).
		Build()
	if err != nil {
		t.Fatalf("Failed to build spec: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS user")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS tag")).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.DropTables(context.Background(), users, tags); err != nil {
		t.Fatalf("DropTables failed: %v", err)
	}
}
