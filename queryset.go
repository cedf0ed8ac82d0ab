package quill

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/quillorm/quill/clause"
)

// QuerySet is an immutable, lazily evaluated description of a SELECT over
// one spec's table. Chaining methods return new values, never mutate the
// receiver, and hit the database only when a terminal operation runs.
//
// Usage example:
//
//	adults := users.Objects().Filter(quill.Values{"age__gte": 18})
//	active := adults.Filter(quill.Values{"active": true}).OrderBy("-age")
//	rows, err := active.All(ctx)
//
// adults is untouched by the second chain and can keep being refined.
type QuerySet struct {
	spec    *Spec
	db      *Database
	where   []clause.Expression
	orderBy []clause.OrderByColumn
	limit   int64
	offset  int64
	err     error
}

func newQuerySet(spec *Spec, db *Database) QuerySet {
	return QuerySet{spec: spec, db: db, limit: -1, offset: -1}
}

// clone copies the chain state so the receiver stays untouched.
func (q QuerySet) clone() QuerySet {
	out := q
	out.where = append([]clause.Expression(nil), q.where...)
	out.orderBy = append([]clause.OrderByColumn(nil), q.orderBy...)
	return out
}

// sortedKeys fixes the compile order of one kwargs map so an identical
// chain always produces identical SQL.
func sortedKeys(vals Values) []string {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Filter returns a copy narrowed by the given field__lookup conditions,
// ANDed with everything already on the chain. An unknown field is reported
// as a FieldError by the terminal operation.
func (q QuerySet) Filter(vals Values) QuerySet {
	out := q.clone()
	if out.err != nil {
		return out
	}
	for _, key := range sortedKeys(vals) {
		expr, err := compileFilter(q.spec, key, vals[key])
		if err != nil {
			out.err = err
			return out
		}
		out.where = append(out.where, expr)
	}
	return out
}

// Exclude returns a copy narrowed by the logical complement of the given
// conditions. Rows with NULL in the excluded column are kept, since they
// cannot match the original condition.
func (q QuerySet) Exclude(vals Values) QuerySet {
	out := q.clone()
	if out.err != nil {
		return out
	}
	for _, key := range sortedKeys(vals) {
		expr, err := compileExclude(q.spec, key, vals[key])
		if err != nil {
			out.err = err
			return out
		}
		out.where = append(out.where, expr)
	}
	return out
}

// OrderBy returns a copy sorted by the given fields. A "-" prefix means
// descending. Successive calls extend the accumulated ordering.
func (q QuerySet) OrderBy(fields ...string) QuerySet {
	out := q.clone()
	if out.err != nil {
		return out
	}
	for _, f := range fields {
		desc := strings.HasPrefix(f, "-")
		name := strings.TrimPrefix(f, "-")
		if err := checkFilterField(q.spec, name); err != nil {
			out.err = err
			return out
		}
		out.orderBy = append(out.orderBy, clause.OrderByColumn{
			Column: clause.Column{Name: name},
			Desc:   desc,
		})
	}
	return out
}

// Limit returns a copy capped at n rows.
func (q QuerySet) Limit(n int64) QuerySet {
	out := q.clone()
	out.limit = n
	return out
}

// Offset returns a copy skipping the first n rows.
func (q QuerySet) Offset(n int64) QuerySet {
	out := q.clone()
	out.offset = n
	return out
}

// baseSelect starts a SELECT with the chain's WHERE conditions only.
// Aggregates build on this directly so ORDER BY and pagination never leak
// into them.
func (q QuerySet) baseSelect(columns ...string) (sq.SelectBuilder, error) {
	builder := sq.Select(columns...).
		From(q.spec.table).
		PlaceholderFormat(q.db.dialect.PlaceholderFormat())

	if len(q.where) > 0 {
		cond, args, err := clause.And(q.where).Build()
		if err != nil {
			return builder, err
		}
		builder = builder.Where(sq.Expr(cond, args...))
	}
	return builder, nil
}

// buildSelect assembles the SELECT in fixed clause order: WHERE, ORDER BY,
// LIMIT, OFFSET.
func (q QuerySet) buildSelect(columns ...string) (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}

	builder, err := q.baseSelect(columns...)
	if err != nil {
		return "", nil, err
	}
	for _, ob := range q.orderBy {
		dir := "ASC"
		if ob.Desc {
			dir = "DESC"
		}
		builder = builder.OrderBy(ob.Column.ColumnName() + " " + dir)
	}
	switch {
	case q.limit >= 0:
		builder = builder.Limit(uint64(q.limit))
		if q.offset >= 0 {
			builder = builder.Offset(uint64(q.offset))
		}
	case q.offset >= 0:
		// sqlite rejects a bare OFFSET; -1 is its unlimited sentinel.
		builder = builder.Suffix(fmt.Sprintf("LIMIT -1 OFFSET %d", q.offset))
	}

	return builder.ToSql()
}

// ToSQL returns the SELECT * statement and bind parameters the chain would
// execute, without touching the database.
func (q QuerySet) ToSQL() (string, []any, error) {
	return q.buildSelect("*")
}

func (q QuerySet) fetch(ctx context.Context) ([]*Model, error) {
	query, args, err := q.buildSelect("*")
	if err != nil {
		return nil, err
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Model
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, &DatabaseError{Op: "scan", Err: err}
		}
		m, err := q.spec.hydrate(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "query", Err: err}
	}
	return out, nil
}

// All executes the chain and returns every matching instance.
func (q QuerySet) All(ctx context.Context) ([]*Model, error) {
	return q.fetch(ctx)
}

// Get executes the chain expecting exactly one row. No match is
// ErrNotFound, more than one is ErrMultipleObjects.
func (q QuerySet) Get(ctx context.Context) (*Model, error) {
	// Two rows are enough to tell one from many.
	models, err := q.Limit(2).fetch(ctx)
	if err != nil {
		return nil, err
	}
	switch len(models) {
	case 0:
		return nil, fmt.Errorf("%w: %s matching query does not exist", ErrNotFound, q.spec.name)
	case 1:
		return models[0], nil
	default:
		return nil, fmt.Errorf("%w: get returned more than one %s", ErrMultipleObjects, q.spec.name)
	}
}

// First returns the first matching instance, ordered by id when the chain
// has no explicit ordering, or nil when nothing matches.
func (q QuerySet) First(ctx context.Context) (*Model, error) {
	qq := q
	if len(qq.orderBy) == 0 {
		qq = qq.OrderBy("id")
	}
	models, err := qq.Limit(1).fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0], nil
}

// Last returns the last matching instance by reversing the chain's
// ordering (or id order when none is set), or nil when nothing matches.
func (q QuerySet) Last(ctx context.Context) (*Model, error) {
	qq := q.clone()
	if len(qq.orderBy) == 0 {
		qq.orderBy = append(qq.orderBy, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	for i := range qq.orderBy {
		qq.orderBy[i].Desc = !qq.orderBy[i].Desc
	}
	models, err := qq.Limit(1).fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0], nil
}

// Count returns the number of matching rows via SELECT COUNT(*) over the
// chain's conditions. Ordering and pagination on the chain are ignored.
func (q QuerySet) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	builder, err := q.baseSelect("COUNT(*)")
	if err != nil {
		return 0, err
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.db.Get(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Exists reports whether at least one row matches the chain's conditions,
// without counting them all.
func (q QuerySet) Exists(ctx context.Context) (bool, error) {
	if q.err != nil {
		return false, q.err
	}
	builder, err := q.baseSelect("1")
	if err != nil {
		return false, err
	}
	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if rows.Next() {
		return true, nil
	}
	return false, rows.Err()
}

// Index returns the i-th matching instance (zero-based) or ErrNotFound
// when the chain has fewer rows.
func (q QuerySet) Index(ctx context.Context, i int64) (*Model, error) {
	if i < 0 {
		return nil, fmt.Errorf("quill: negative index %d", i)
	}
	models, err := q.Offset(i).Limit(1).fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: index %d out of range", ErrNotFound, i)
	}
	return models[0], nil
}

// Slice returns the half-open [start, stop) window of matching instances.
func (q QuerySet) Slice(ctx context.Context, start, stop int64) ([]*Model, error) {
	if start < 0 || stop < start {
		return nil, fmt.Errorf("quill: invalid slice [%d:%d]", start, stop)
	}
	return q.Offset(start).Limit(stop - start).fetch(ctx)
}

// Delete removes every matching row and returns how many went away. It
// ignores any LIMIT or ORDER BY on the chain.
func (q QuerySet) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}

	builder := sq.Delete(q.spec.table).
		PlaceholderFormat(q.db.dialect.PlaceholderFormat())
	if len(q.where) > 0 {
		cond, args, err := clause.And(q.where).Build()
		if err != nil {
			return 0, err
		}
		builder = builder.Where(sq.Expr(cond, args...))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.db.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

// Update bulk-assigns the given field values on every matching row,
// validating each value against its field first, and returns the affected
// row count.
func (q QuerySet) Update(ctx context.Context, vals Values) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(vals) == 0 {
		return 0, nil
	}

	setMap := make(map[string]any, len(vals))
	for _, key := range sortedKeys(vals) {
		field, ok := q.spec.Field(key)
		if !ok {
			return 0, &FieldError{Field: key}
		}
		canonical, err := field.Validate(vals[key])
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return 0, &ValidationError{Field: key, Message: ve.Message}
			}
			return 0, err
		}
		setMap[key] = canonical
	}

	builder := sq.Update(q.spec.table).
		SetMap(setMap).
		PlaceholderFormat(q.db.dialect.PlaceholderFormat())
	if len(q.where) > 0 {
		cond, args, err := clause.And(q.where).Build()
		if err != nil {
			return 0, err
		}
		builder = builder.Where(sq.Expr(cond, args...))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.db.Execute(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
