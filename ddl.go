package quill

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillorm/quill/fields"
)

// CreateTable issues CREATE TABLE IF NOT EXISTS for the spec. Columns follow
// field declaration order with NOT NULL for required fields, UNIQUE for
// unique ones, and literal DEFAULT clauses. A schema without a declared id
// field gets a synthesized INTEGER PRIMARY KEY AUTOINCREMENT surrogate; a
// declared integer id becomes the primary key itself.
func (d *Database) CreateTable(ctx context.Context, spec *Spec) error {
	var cols []string
	if !spec.HasID() {
		cols = append(cols, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	}

	for _, name := range spec.FieldNames() {
		f, _ := spec.Field(name)
		cols = append(cols, columnDefinition(name, f))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", spec.Table(), strings.Join(cols, ", "))
	_, err := d.Execute(ctx, query)
	return err
}

// DropTable issues DROP TABLE IF EXISTS for the spec.
func (d *Database) DropTable(ctx context.Context, spec *Spec) error {
	_, err := d.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", spec.Table()))
	return err
}

// CreateTables creates every given spec's table, stopping at the first
// failure.
func (d *Database) CreateTables(ctx context.Context, specs ...*Spec) error {
	for _, spec := range specs {
		if err := d.CreateTable(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// DropTables drops every given spec's table, stopping at the first failure.
func (d *Database) DropTables(ctx context.Context, specs ...*Spec) error {
	for _, spec := range specs {
		if err := d.DropTable(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

func columnDefinition(name string, f fields.Field) string {
	if name == "id" {
		switch f.Kind() {
		case fields.KindInteger, fields.KindForeignKey:
			return "id INTEGER PRIMARY KEY AUTOINCREMENT"
		}
	}

	parts := []string{name, f.Kind().ColumnType()}
	if f.Required() {
		parts = append(parts, "NOT NULL")
	}
	if f.Unique() {
		parts = append(parts, "UNIQUE")
	}
	if def := f.Default(); def != nil {
		parts = append(parts, "DEFAULT", sqlLiteral(def))
	}
	return strings.Join(parts, " ")
}

// sqlLiteral renders a default value for embedding in DDL. Only schema
// defaults declared in code pass through here, never user input.
func sqlLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", x)
	}
}
