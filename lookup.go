package quill

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/quillorm/quill/clause"
)

// Lookup keys follow the field__lookup convention: "age__gte" compiles to
// age >= ?, a bare "age" (or an unrecognized suffix) to plain equality.
const lookupSeparator = "__"

var knownLookups = map[string]bool{
	"exact":      true,
	"iexact":     true,
	"contains":   true,
	"icontains":  true,
	"startswith": true,
	"endswith":   true,
	"gt":         true,
	"gte":        true,
	"lt":         true,
	"lte":        true,
	"in":         true,
}

// splitLookup separates a filter key into field name and lookup operator at
// the first separator. An unrecognized suffix defaults to equality on the
// field part.
func splitLookup(key string) (field, lookup string) {
	field, suffix, ok := strings.Cut(key, lookupSeparator)
	if !ok || !knownLookups[suffix] {
		return field, "exact"
	}
	return field, suffix
}

// compileFilter turns one field__lookup=value pair into a WHERE expression.
// The field must be declared on the spec (the synthesized id column counts).
func compileFilter(spec *Spec, key string, value any) (clause.Expression, error) {
	field, lookup := splitLookup(key)
	if err := checkFilterField(spec, field); err != nil {
		return nil, err
	}
	col := clause.Column{Name: field}

	switch lookup {
	case "exact":
		return clause.Eq{Column: col, Value: value}, nil
	case "iexact":
		return clause.IEq{Column: col, Value: value}, nil
	case "contains":
		return clause.Like{Column: col, Pattern: "%" + fmt.Sprintf("%v", value) + "%"}, nil
	case "icontains":
		return clause.ILike{Column: col, Pattern: "%" + fmt.Sprintf("%v", value) + "%"}, nil
	case "startswith":
		return clause.Like{Column: col, Pattern: fmt.Sprintf("%v", value) + "%"}, nil
	case "endswith":
		return clause.Like{Column: col, Pattern: "%" + fmt.Sprintf("%v", value)}, nil
	case "gt":
		return clause.Gt{Column: col, Value: value}, nil
	case "gte":
		return clause.Gte{Column: col, Value: value}, nil
	case "lt":
		return clause.Lt{Column: col, Value: value}, nil
	case "lte":
		return clause.Lte{Column: col, Value: value}, nil
	case "in":
		vals, err := expandSlice(value)
		if err != nil {
			return nil, fmt.Errorf("quill: lookup %q: %w", key, err)
		}
		return clause.IN{Column: col, Values: vals}, nil
	default:
		return nil, fmt.Errorf("quill: unsupported lookup %q", lookup)
	}
}

// compileExclude compiles the logical complement of a filter pair. SQL
// three-valued logic would otherwise drop NULL rows from both a filter and
// its exclusion, so the inverted comparison is ORed with an IS NULL check.
func compileExclude(spec *Spec, key string, value any) (clause.Expression, error) {
	field, lookup := splitLookup(key)
	if err := checkFilterField(spec, field); err != nil {
		return nil, err
	}
	col := clause.Column{Name: field}

	var inverted clause.Expression
	switch lookup {
	case "exact":
		inverted = clause.Neq{Column: col, Value: value}
	case "iexact":
		inverted = clause.Not{Expr: clause.IEq{Column: col, Value: value}}
	case "contains":
		inverted = clause.Not{Expr: clause.Like{Column: col, Pattern: "%" + fmt.Sprintf("%v", value) + "%"}}
	case "icontains":
		inverted = clause.Not{Expr: clause.ILike{Column: col, Pattern: "%" + fmt.Sprintf("%v", value) + "%"}}
	case "startswith":
		inverted = clause.Not{Expr: clause.Like{Column: col, Pattern: fmt.Sprintf("%v", value) + "%"}}
	case "endswith":
		inverted = clause.Not{Expr: clause.Like{Column: col, Pattern: "%" + fmt.Sprintf("%v", value)}}
	case "gt":
		inverted = clause.Lte{Column: col, Value: value}
	case "gte":
		inverted = clause.Lt{Column: col, Value: value}
	case "lt":
		inverted = clause.Gte{Column: col, Value: value}
	case "lte":
		inverted = clause.Gt{Column: col, Value: value}
	case "in":
		vals, err := expandSlice(value)
		if err != nil {
			return nil, fmt.Errorf("quill: lookup %q: %w", key, err)
		}
		inverted = clause.Not{Expr: clause.IN{Column: col, Values: vals}}
	default:
		return nil, fmt.Errorf("quill: unsupported lookup %q", lookup)
	}

	return clause.Or{clause.IsNull{Column: col}, inverted}, nil
}

func checkFilterField(spec *Spec, field string) error {
	if _, ok := spec.Field(field); ok {
		return nil
	}
	if field == "id" && !spec.HasID() {
		return nil
	}
	return &FieldError{Field: field}
}

// expandSlice converts any slice or array value into []any for IN binding.
func expandSlice(value any) ([]any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("in lookup requires a slice, got %T", value)
	}
}
