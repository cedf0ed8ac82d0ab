package fields

import (
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// IntegerField holds a whole number. Native integer types, integral floats
// and parseable strings coerce to int64.
type IntegerField struct {
	base
	min *int64
	max *int64
}

// Integer builds an integer field. MinValue/MaxValue bounds are inclusive.
func Integer(opts ...Option) *IntegerField {
	c := applyOptions(opts)
	f := &IntegerField{base: newBase(KindInteger, c)}
	if c.minValue != nil {
		m := int64(*c.minValue)
		f.min = &m
	}
	if c.maxValue != nil {
		m := int64(*c.maxValue)
		f.max = &m
	}
	return f
}

// Auto builds the conventional auto-increment surrogate key field: an
// integer that is never required because the database assigns it.
func Auto(opts ...Option) *IntegerField {
	return Integer(opts...)
}

func (f *IntegerField) Validate(v any) (any, error) {
	done, err := f.checkNil(v)
	if done || err != nil {
		return nil, err
	}

	n, ok := coerceInt64(v)
	if !ok {
		return nil, validationf("value must be an integer")
	}

	if err := checkBounds(n, f.min, f.max); err != nil {
		return nil, err
	}
	if err := f.runValidators(n); err != nil {
		return nil, asValidationError(err)
	}
	return n, nil
}

// FloatField holds a floating point number. Native numerics and parseable
// strings coerce to float64.
type FloatField struct {
	base
	min *float64
	max *float64
}

// Float builds a floating point field.
func Float(opts ...Option) *FloatField {
	c := applyOptions(opts)
	return &FloatField{base: newBase(KindFloat, c), min: c.minValue, max: c.maxValue}
}

func (f *FloatField) Validate(v any) (any, error) {
	done, err := f.checkNil(v)
	if done || err != nil {
		return nil, err
	}

	n, ok := coerceFloat64(v)
	if !ok {
		return nil, validationf("value must be a number")
	}

	if err := checkBounds(n, f.min, f.max); err != nil {
		return nil, err
	}
	if err := f.runValidators(n); err != nil {
		return nil, asValidationError(err)
	}
	return n, nil
}

// checkBounds verifies an inclusive range. Either bound may be nil.
func checkBounds[T constraints.Ordered](v T, min, max *T) error {
	if min != nil && v < *min {
		return validationf("value must be at least %v", *min)
	}
	if max != nil && v > *max {
		return validationf("value must be no more than %v", *max)
	}
	return nil
}

func coerceInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return parsed, err == nil
	case []byte:
		parsed, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func coerceFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return parsed, err == nil
	case []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
