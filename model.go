// This file implements the declarative entity layer: a Spec describes a
// model type as an ordered name→field schema fixed at build time, and a
// Model is one instance of that schema with an unsaved→saved lifecycle.
//
// There is no struct introspection: schemas are declared explicitly through
// the SpecBuilder, and instance values live behind a validating setter so an
// invalid value is never observable.
package quill

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/quillorm/quill/fields"
)

// Values is a plain name→value snapshot, used for model construction, SQL
// parameter binding, and external inspection.
type Values map[string]any

type fieldDef struct {
	name  string
	field fields.Field
}

// Spec is the schema of one model type: an ordered field registry plus the
// table binding. A Spec is immutable once built and safe for concurrent use.
type Spec struct {
	name    string
	table   string
	defs    []fieldDef
	byName  map[string]fields.Field
	db      *Database
	objects *Manager
}

// SpecBuilder assembles a Spec. Fields keep declaration order; the table
// name defaults to the lowercased spec name and may be overridden once.
type SpecBuilder struct {
	name     string
	table    string
	defs     []fieldDef
	err      error
	tableSet bool
}

// NewSpec starts a schema declaration for the named model type.
//
// Usage example:
//
//	users := quill.NewSpec("User").
//	    Field("name", fields.Char(fields.MaxLength(100), fields.Required())).
//	    Field("age", fields.Integer(fields.MinValue(0))).
//	    Field("email", fields.Email(fields.Unique())).
//	    MustBuild()
func NewSpec(name string) *SpecBuilder {
	return &SpecBuilder{name: name}
}

// Field declares the next field. Declaration order is the column order.
func (b *SpecBuilder) Field(name string, f fields.Field) *SpecBuilder {
	if b.err != nil {
		return b
	}
	for _, def := range b.defs {
		if def.name == name {
			b.err = fmt.Errorf("quill: duplicate field %q in spec %q", name, b.name)
			return b
		}
	}
	b.defs = append(b.defs, fieldDef{name: name, field: f})
	return b
}

// Table overrides the default table name. May be called at most once.
func (b *SpecBuilder) Table(name string) *SpecBuilder {
	if b.err != nil {
		return b
	}
	if b.tableSet {
		b.err = fmt.Errorf("quill: table name for spec %q set twice", b.name)
		return b
	}
	b.table = name
	b.tableSet = true
	return b
}

// Build finalizes the schema.
func (b *SpecBuilder) Build() (*Spec, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.name == "" {
		return nil, fmt.Errorf("quill: spec has no name")
	}

	table := b.table
	if table == "" {
		table = strings.ToLower(b.name)
	}

	s := &Spec{
		name:   b.name,
		table:  table,
		defs:   b.defs,
		byName: make(map[string]fields.Field, len(b.defs)),
	}
	for _, def := range b.defs {
		s.byName[def.name] = def.field
	}
	s.objects = &Manager{spec: s}
	return s, nil
}

// MustBuild is Build for package-level declarations; it panics on a
// malformed schema.
func (b *SpecBuilder) MustBuild() *Spec {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the model type name.
func (s *Spec) Name() string { return s.name }

// Table returns the bound table name.
func (s *Spec) Table() string { return s.table }

// FieldNames returns the declared field names in declaration order.
func (s *Spec) FieldNames() []string {
	names := make([]string, len(s.defs))
	for i, def := range s.defs {
		names[i] = def.name
	}
	return names
}

// Field returns the declared field by name.
func (s *Spec) Field(name string) (fields.Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// HasID reports whether the schema declares an integer id field itself. When
// it does not, the DDL generator synthesizes a surrogate auto-increment key.
func (s *Spec) HasID() bool {
	_, ok := s.byName["id"]
	return ok
}

// Bind attaches the default Database every instance and manager of this
// spec falls back to when no explicit handle is given.
func (s *Spec) Bind(db *Database) { s.db = db }

// Objects returns the spec's default Manager.
func (s *Spec) Objects() *Manager { return s.objects }

// resolveDB picks the Database for an operation: the explicit argument
// first, then the spec binding.
func (s *Spec) resolveDB(db *Database) (*Database, error) {
	if db != nil {
		return db, nil
	}
	if s.db != nil {
		return s.db, nil
	}
	return nil, fmt.Errorf("%w: no database bound for spec %q", ErrImproperlyConfigured, s.name)
}

// New constructs an unsaved instance. Declared fields take the given value
// (run through the validating setter) or fall back to the field default;
// any other key becomes an untyped extra attribute.
func (s *Spec) New(vals Values) (*Model, error) {
	m := &Model{
		spec:   s,
		values: make(map[string]any, len(s.defs)),
		extra:  make(map[string]any),
	}

	for _, def := range s.defs {
		if v, ok := vals[def.name]; ok {
			if err := m.Set(def.name, v); err != nil {
				return nil, err
			}
			continue
		}
		// Defaults are trusted as declared; FullClean revalidates them
		// before anything reaches the database.
		m.values[def.name] = def.field.Default()
	}

	for k, v := range vals {
		if _, declared := s.byName[k]; !declared {
			m.extra[k] = v
		}
	}
	return m, nil
}

// MustNew is New for tests and fixtures; it panics on validation failure.
func (s *Spec) MustNew(vals Values) *Model {
	m, err := s.New(vals)
	if err != nil {
		panic(err)
	}
	return m
}

// hydrate builds a saved instance from a database row.
func (s *Spec) hydrate(row Values) (*Model, error) {
	m, err := s.New(row)
	if err != nil {
		return nil, err
	}
	m.saved = true
	return m, nil
}

// Model is one instance of a Spec: a concrete value per declared field, a
// saved flag, and any untyped extras. Instances are not synchronized;
// concurrent mutation must be serialized by the caller.
type Model struct {
	spec   *Spec
	values map[string]any
	extra  map[string]any
	saved  bool
}

// Spec returns the schema this instance belongs to.
func (m *Model) Spec() *Spec { return m.spec }

// IsSaved reports whether the instance is backed by a database row.
func (m *Model) IsSaved() bool { return m.saved }

// Set assigns a value. A declared field is validated first; on failure the
// previous value stays in place and a ValidationError naming the field is
// returned. An undeclared name becomes an untyped extra attribute.
func (m *Model) Set(name string, v any) error {
	field, declared := m.spec.byName[name]
	if !declared {
		m.extra[name] = v
		return nil
	}

	canonical, err := field.Validate(v)
	if err != nil {
		if ve, ok := err.(*ValidationError); ok {
			return &ValidationError{Field: name, Message: ve.Message}
		}
		return err
	}
	m.values[name] = canonical
	return nil
}

// Get returns the current value of a declared field or extra attribute.
func (m *Model) Get(name string) (any, bool) {
	if _, declared := m.spec.byName[name]; declared {
		v, ok := m.values[name]
		return v, ok
	}
	v, ok := m.extra[name]
	return v, ok
}

// ID returns the primary key when present. It checks the declared id field
// first, then the extras (where a synthesized surrogate key lands after a
// fetch).
func (m *Model) ID() (int64, bool) {
	v, ok := m.Get("id")
	if !ok || v == nil {
		return 0, false
	}
	switch id := v.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	default:
		return 0, false
	}
}

// ToDict returns a name→value snapshot of all declared fields.
func (m *Model) ToDict() Values {
	out := make(Values, len(m.values))
	for _, def := range m.spec.defs {
		out[def.name] = m.values[def.name]
	}
	return out
}

// FullClean validates every declared field's current value in declaration
// order, returning the first violation found.
func (m *Model) FullClean() error {
	for _, def := range m.spec.defs {
		if _, err := def.field.Validate(m.values[def.name]); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return &ValidationError{Field: def.name, Message: ve.Message}
			}
			return err
		}
	}
	return nil
}

// Save persists the instance: INSERT when unsaved (capturing the generated
// id when the schema declares an id field left unset), UPDATE of all non-id
// columns keyed by id otherwise. FullClean runs first, so an invalid
// instance never reaches the database. Pass a nil db to use the spec
// binding.
func (m *Model) Save(ctx context.Context, db *Database) error {
	db, err := m.spec.resolveDB(db)
	if err != nil {
		return err
	}
	if err := m.FullClean(); err != nil {
		return err
	}

	if m.saved {
		return m.update(ctx, db)
	}
	return m.insert(ctx, db)
}

func (m *Model) insert(ctx context.Context, db *Database) error {
	var cols []string
	var vals []any
	for _, def := range m.spec.defs {
		v := m.values[def.name]
		if def.name == "id" && v == nil {
			// Leave id assignment to the database.
			continue
		}
		cols = append(cols, def.name)
		vals = append(vals, v)
	}

	builder := sq.Insert(m.spec.table).
		Columns(cols...).
		Values(vals...).
		PlaceholderFormat(db.dialect.PlaceholderFormat())

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("quill: failed to build insert: %w", err)
	}

	res, err := db.Execute(ctx, query, args...)
	if err != nil {
		return err
	}

	if m.spec.HasID() {
		if _, set := m.ID(); !set {
			m.values["id"] = res.LastInsertID()
		}
	}
	m.saved = true
	return nil
}

func (m *Model) update(ctx context.Context, db *Database) error {
	id, ok := m.ID()
	if !ok {
		return fmt.Errorf("%w: cannot update %q without an id", ErrImproperlyConfigured, m.spec.name)
	}

	setMap := make(map[string]any, len(m.spec.defs))
	for _, def := range m.spec.defs {
		if def.name == "id" {
			continue
		}
		setMap[def.name] = m.values[def.name]
	}

	builder := sq.Update(m.spec.table).
		SetMap(setMap).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(db.dialect.PlaceholderFormat())

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("quill: failed to build update: %w", err)
	}

	_, err = db.Execute(ctx, query, args...)
	return err
}

// Delete removes the backing row and marks the instance unsaved. Deleting
// an instance that was never saved (or has no id) fails with ErrUnsaved.
func (m *Model) Delete(ctx context.Context, db *Database) error {
	db, err := m.spec.resolveDB(db)
	if err != nil {
		return err
	}

	id, ok := m.ID()
	if !m.saved || !ok {
		return ErrUnsaved
	}

	builder := sq.Delete(m.spec.table).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(db.dialect.PlaceholderFormat())

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("quill: failed to build delete: %w", err)
	}

	if _, err := db.Execute(ctx, query, args...); err != nil {
		return err
	}
	m.saved = false
	return nil
}

// Refresh re-reads the backing row and overwrites in-memory field values.
// When the row no longer exists it returns ErrNotFound instead of leaving
// stale state in place.
func (m *Model) Refresh(ctx context.Context, db *Database) error {
	db, err := m.spec.resolveDB(db)
	if err != nil {
		return err
	}

	id, ok := m.ID()
	if !m.saved || !ok {
		return ErrUnsaved
	}

	builder := sq.Select("*").
		From(m.spec.table).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(db.dialect.PlaceholderFormat())

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("quill: failed to build select: %w", err)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return &DatabaseError{Op: "query", Err: err}
		}
		return fmt.Errorf("%w: %s id=%d no longer exists", ErrNotFound, m.spec.name, id)
	}

	row := make(map[string]any)
	if err := rows.MapScan(row); err != nil {
		return &DatabaseError{Op: "scan", Err: err}
	}

	for name, v := range row {
		if _, declared := m.spec.byName[name]; declared {
			if err := m.Set(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}
