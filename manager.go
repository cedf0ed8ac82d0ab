package quill

import (
	"context"
	"fmt"
)

// Manager is the query entrypoint for one spec. Every spec carries a
// default manager (Spec.Objects) that inherits the spec's database binding;
// NewManager builds one pinned to an explicit Database instead.
//
// Usage example:
//
//	alice, err := users.Objects().Create(ctx, quill.Values{"name": "Alice", "age": 30})
//	adults, err := users.Objects().Filter(quill.Values{"age__gte": 18}).All(ctx)
type Manager struct {
	spec *Spec
	db   *Database
}

// NewManager returns a manager for spec bound to the given database,
// overriding any spec-level binding.
func NewManager(spec *Spec, db *Database) *Manager {
	return &Manager{spec: spec, db: db}
}

func (m *Manager) resolve() (*Database, error) {
	if m.db != nil {
		return m.db, nil
	}
	if m.spec.db != nil {
		return m.spec.db, nil
	}
	return nil, fmt.Errorf("%w: no database bound for manager of %q", ErrImproperlyConfigured, m.spec.name)
}

// query starts a fresh chain. A missing database binding is carried on the
// chain and surfaces at the terminal operation.
func (m *Manager) query() QuerySet {
	db, err := m.resolve()
	q := newQuerySet(m.spec, db)
	q.err = err
	return q
}

// All returns an unfiltered chain over the whole table.
func (m *Manager) All() QuerySet { return m.query() }

// Filter starts a chain narrowed by the given conditions.
func (m *Manager) Filter(vals Values) QuerySet { return m.query().Filter(vals) }

// Exclude starts a chain narrowed by the complement of the given
// conditions.
func (m *Manager) Exclude(vals Values) QuerySet { return m.query().Exclude(vals) }

// OrderBy starts a chain sorted by the given fields.
func (m *Manager) OrderBy(fields ...string) QuerySet { return m.query().OrderBy(fields...) }

// Get fetches the single instance matching the conditions.
func (m *Manager) Get(ctx context.Context, vals Values) (*Model, error) {
	return m.query().Filter(vals).Get(ctx)
}

// First returns the first instance by id order, or nil on an empty table.
func (m *Manager) First(ctx context.Context) (*Model, error) {
	return m.query().First(ctx)
}

// Last returns the last instance by id order, or nil on an empty table.
func (m *Manager) Last(ctx context.Context) (*Model, error) {
	return m.query().Last(ctx)
}

// Count returns the total row count.
func (m *Manager) Count(ctx context.Context) (int64, error) {
	return m.query().Count(ctx)
}

// Exists reports whether any row matches the conditions.
func (m *Manager) Exists(ctx context.Context, vals Values) (bool, error) {
	return m.query().Filter(vals).Exists(ctx)
}

// Create validates, constructs, and saves a new instance in one step.
func (m *Manager) Create(ctx context.Context, vals Values) (*Model, error) {
	db, err := m.resolve()
	if err != nil {
		return nil, err
	}
	inst, err := m.spec.New(vals)
	if err != nil {
		return nil, err
	}
	if err := inst.Save(ctx, db); err != nil {
		return nil, err
	}
	return inst, nil
}

// BulkCreate saves one instance per value set, stopping at the first
// failure and returning the instances created so far. Rows are inserted
// one statement at a time so each instance gets its generated id back.
func (m *Manager) BulkCreate(ctx context.Context, sets []Values) ([]*Model, error) {
	out := make([]*Model, 0, len(sets))
	for _, vals := range sets {
		inst, err := m.Create(ctx, vals)
		if err != nil {
			return out, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Delete removes every row matching the conditions and returns the count.
func (m *Manager) Delete(ctx context.Context, vals Values) (int64, error) {
	return m.query().Filter(vals).Delete(ctx)
}

// Update bulk-assigns updates on every row matching filter and returns the
// affected count.
func (m *Manager) Update(ctx context.Context, filter, updates Values) (int64, error) {
	return m.query().Filter(filter).Update(ctx, updates)
}
