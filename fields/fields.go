// Package fields defines the validated value-holders a model schema is built
// from. Each field type is pure: Validate takes a raw value and returns the
// canonical value or a validation error, with no persistent state.
//
// Check order is fixed for every field: required/nil check, type coercion,
// constraint checks (length, range, pattern), then custom validators.
// A non-required field passes nil through untouched.
package fields

import "fmt"

// ValidationError reports a field-contract violation: a nil value on a
// required field, a failed coercion, a constraint violation, or a custom
// validator rejection. Field is filled in by the model layer when the error
// surfaces from a validating setter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "quill: validation failed: " + e.Message
	}
	return fmt.Sprintf("quill: invalid value for field %q: %s", e.Field, e.Message)
}

// validationf builds a ValidationError with a formatted message.
func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var errRequired = &ValidationError{Message: "this field is required"}

// Kind identifies the coercion type of a field. The DDL generator maps kinds
// onto SQL column types.
type Kind int

const (
	KindChar Kind = iota
	KindText
	KindEmail
	KindURL
	KindInteger
	KindFloat
	KindBool
	KindDateTime
	KindForeignKey
)

// String returns the lowercase field-kind name.
func (k Kind) String() string {
	switch k {
	case KindChar:
		return "char"
	case KindText:
		return "text"
	case KindEmail:
		return "email"
	case KindURL:
		return "url"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindForeignKey:
		return "foreignkey"
	}
	return "unknown"
}

// ColumnType returns the SQL column type used when deriving DDL for a field
// of this kind.
func (k Kind) ColumnType() string {
	switch k {
	case KindInteger, KindForeignKey:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// Validator is a custom check run against the canonical value, after the
// field's own coercion and constraint checks.
type Validator func(v any) error

// Field is the contract every field type satisfies.
type Field interface {
	// Validate coerces v to the field's canonical representation and checks
	// all constraints. A nil value on a non-required field is returned as is.
	Validate(v any) (any, error)

	Kind() Kind
	Required() bool
	Unique() bool
	Default() any
}

// Option configures common field behavior shared by all field types.
// Type-specific constraints (lengths, bounds) are options too, read only by
// the field types they apply to.
type Option func(*config)

type config struct {
	required   bool
	unique     bool
	def        any
	validators []Validator

	maxLength *int
	minLength int

	minValue *float64
	maxValue *float64
}

// Required marks the field as rejecting nil values.
func Required() Option {
	return func(c *config) { c.required = true }
}

// Unique marks the field's column with a UNIQUE constraint.
func Unique() Option {
	return func(c *config) { c.unique = true }
}

// Default sets the value assigned when a model is constructed without one.
func Default(v any) Option {
	return func(c *config) { c.def = v }
}

// WithValidators appends custom validators, run last against the canonical
// value.
func WithValidators(vs ...Validator) Option {
	return func(c *config) { c.validators = append(c.validators, vs...) }
}

// MaxLength bounds the string length of Char-derived fields.
func MaxLength(n int) Option {
	return func(c *config) { c.maxLength = &n }
}

// MinLength sets the minimum string length of Char-derived fields.
func MinLength(n int) Option {
	return func(c *config) { c.minLength = n }
}

// MinValue sets the inclusive lower bound of numeric fields.
func MinValue(v float64) Option {
	return func(c *config) { c.minValue = &v }
}

// MaxValue sets the inclusive upper bound of numeric fields.
func MaxValue(v float64) Option {
	return func(c *config) { c.maxValue = &v }
}

func applyOptions(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// base carries the common flags and implements the shared parts of Field.
type base struct {
	kind       Kind
	required   bool
	unique     bool
	def        any
	validators []Validator
}

func newBase(kind Kind, c config) base {
	return base{
		kind:       kind,
		required:   c.required,
		unique:     c.unique,
		def:        c.def,
		validators: c.validators,
	}
}

func (b base) Kind() Kind     { return b.kind }
func (b base) Required() bool { return b.required }
func (b base) Unique() bool   { return b.unique }
func (b base) Default() any   { return b.def }

// checkNil enforces the required contract. done is true when validation is
// finished (the value is nil and allowed to stay nil).
func (b base) checkNil(v any) (done bool, err error) {
	if v == nil {
		if b.required {
			return false, errRequired
		}
		return true, nil
	}
	return false, nil
}

func (b base) runValidators(v any) error {
	for _, validate := range b.validators {
		if err := validate(v); err != nil {
			return err
		}
	}
	return nil
}
