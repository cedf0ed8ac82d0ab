// Package clause holds the SQL expression vocabulary the query compiler
// targets. Every lookup the engine supports maps onto a closed set of
// expression variants here, so the exact SQL semantics (including the
// NULL handling of negated comparisons) live in one testable place.
package clause

import (
	"fmt"
	"strings"
)

// Columnar is implemented by anything that can name a column.
type Columnar interface {
	ColumnName() string
}

// Column represents a database column with an optional table qualifier.
type Column struct {
	Table string
	Name  string
}

// ColumnName returns the full column name (with table prefix if specified).
func (c Column) ColumnName() string {
	if c.Table != "" {
		return c.Table + "." + c.Name
	}
	return c.Name
}

var _ Columnar = Column{}

// Expression is the base interface for all SQL expressions. Build returns a
// SQL fragment with ? placeholders and the bound arguments in order.
type Expression interface {
	Build() (sql string, args []any, err error)
}

// Eq represents an equality expression (column = value).
type Eq struct {
	Column Column
	Value  any
}

func (e Eq) Build() (string, []any, error) {
	return e.Column.ColumnName() + " = ?", []any{e.Value}, nil
}

// Neq represents a not equal expression (column != value).
type Neq struct {
	Column Column
	Value  any
}

func (n Neq) Build() (string, []any, error) {
	return n.Column.ColumnName() + " <> ?", []any{n.Value}, nil
}

// IEq represents a case-insensitive equality expression.
// Both sides are lowered so the comparison is symmetric.
type IEq struct {
	Column Column
	Value  any
}

func (e IEq) Build() (string, []any, error) {
	return "LOWER(" + e.Column.ColumnName() + ") = LOWER(?)", []any{e.Value}, nil
}

// Gt represents a greater than expression (column > value).
type Gt struct {
	Column Column
	Value  any
}

func (g Gt) Build() (string, []any, error) {
	return g.Column.ColumnName() + " > ?", []any{g.Value}, nil
}

// Gte represents a greater than or equal expression (column >= value).
type Gte struct {
	Column Column
	Value  any
}

func (g Gte) Build() (string, []any, error) {
	return g.Column.ColumnName() + " >= ?", []any{g.Value}, nil
}

// Lt represents a less than expression (column < value).
type Lt struct {
	Column Column
	Value  any
}

func (l Lt) Build() (string, []any, error) {
	return l.Column.ColumnName() + " < ?", []any{l.Value}, nil
}

// Lte represents a less than or equal expression (column <= value).
type Lte struct {
	Column Column
	Value  any
}

func (l Lte) Build() (string, []any, error) {
	return l.Column.ColumnName() + " <= ?", []any{l.Value}, nil
}

// Like represents a LIKE expression. The pattern is passed through as a bound
// parameter; wildcard placement is the caller's concern.
type Like struct {
	Column  Column
	Pattern string
}

func (l Like) Build() (string, []any, error) {
	return l.Column.ColumnName() + " LIKE ?", []any{l.Pattern}, nil
}

// ILike represents a case-insensitive LIKE: both sides are lowered.
type ILike struct {
	Column  Column
	Pattern string
}

func (l ILike) Build() (string, []any, error) {
	return "LOWER(" + l.Column.ColumnName() + ") LIKE LOWER(?)", []any{l.Pattern}, nil
}

// IsNull represents an IS NULL expression.
type IsNull struct {
	Column Column
}

func (i IsNull) Build() (string, []any, error) {
	return i.Column.ColumnName() + " IS NULL", nil, nil
}

// IsNotNull represents an IS NOT NULL expression.
type IsNotNull struct {
	Column Column
}

func (i IsNotNull) Build() (string, []any, error) {
	return i.Column.ColumnName() + " IS NOT NULL", nil, nil
}

// IN represents a membership expression with one bound parameter per element,
// order preserved.
type IN struct {
	Column Column
	Values []any
}

func (i IN) Build() (string, []any, error) {
	switch len(i.Values) {
	case 0:
		return "1 = 0", nil, nil // IN with empty list is always false
	case 1:
		return i.Column.ColumnName() + " = ?", []any{i.Values[0]}, nil
	default:
		placeholders := make([]string, len(i.Values))
		for idx := range i.Values {
			placeholders[idx] = "?"
		}
		sql := fmt.Sprintf("%s IN (%s)", i.Column.ColumnName(), strings.Join(placeholders, ", "))
		return sql, i.Values, nil
	}
}

// And represents a conjunction of expressions.
type And []Expression

func (a And) Build() (string, []any, error) {
	if len(a) == 0 {
		return "1 = 1", nil, nil // Empty AND is always true
	}

	var sqls []string
	var args []any
	for _, expr := range a {
		sql, exprArgs, err := expr.Build()
		if err != nil {
			return "", nil, err
		}
		sqls = append(sqls, "("+sql+")")
		args = append(args, exprArgs...)
	}
	return strings.Join(sqls, " AND "), args, nil
}

// Or represents a disjunction of expressions.
type Or []Expression

func (o Or) Build() (string, []any, error) {
	if len(o) == 0 {
		return "1 = 0", nil, nil // Empty OR is always false
	}

	var sqls []string
	var args []any
	for _, expr := range o {
		sql, exprArgs, err := expr.Build()
		if err != nil {
			return "", nil, err
		}
		sqls = append(sqls, "("+sql+")")
		args = append(args, exprArgs...)
	}
	return strings.Join(sqls, " OR "), args, nil
}

// Not negates an expression.
type Not struct {
	Expr Expression
}

func (n Not) Build() (string, []any, error) {
	sql, args, err := n.Expr.Build()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

// Expr represents a custom SQL fragment with bound variables.
type Expr struct {
	SQL  string
	Vars []any
}

func (e Expr) Build() (string, []any, error) {
	return e.SQL, e.Vars, nil
}

// OrderByColumn represents one ORDER BY term.
type OrderByColumn struct {
	Column Column
	Desc   bool
}

func (o OrderByColumn) Build() (string, []any, error) {
	sql := o.Column.ColumnName()
	if o.Desc {
		sql += " DESC"
	}
	return sql, nil, nil
}
