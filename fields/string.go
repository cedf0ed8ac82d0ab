package fields

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	defaultCharMaxLength  = 255
	defaultEmailMaxLength = 254
	defaultTextMaxLength  = 65535
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlPattern   = regexp.MustCompile(`^https?://(?:[-\w.])+(?:[:\d]+)?(?:/(?:[\w/_.])*(?:\?(?:[\w&=%.])*)?(?:#(?:[\w.])*)?)?$`)
)

// CharField is a bounded string field. Values are coerced to string, then
// checked against the length bounds. Length is counted in runes, not bytes.
type CharField struct {
	base
	maxLength int
	minLength int
}

// Char builds a string field. MaxLength defaults to 255.
func Char(opts ...Option) *CharField {
	c := applyOptions(opts)
	f := &CharField{base: newBase(KindChar, c), minLength: c.minLength, maxLength: defaultCharMaxLength}
	if c.maxLength != nil {
		f.maxLength = *c.maxLength
	}
	return f
}

// Text builds an effectively unbounded string field.
func Text(opts ...Option) *CharField {
	c := applyOptions(opts)
	f := &CharField{base: newBase(KindText, c), minLength: c.minLength, maxLength: defaultTextMaxLength}
	if c.maxLength != nil {
		f.maxLength = *c.maxLength
	}
	return f
}

// MaxLength reports the configured upper length bound.
func (f *CharField) MaxLength() int { return f.maxLength }

func (f *CharField) Validate(v any) (any, error) {
	done, err := f.checkNil(v)
	if done || err != nil {
		return nil, err
	}

	s := coerceString(v)

	if n := utf8.RuneCountInString(s); n < f.minLength {
		return nil, validationf("value must be at least %d characters long", f.minLength)
	} else if n > f.maxLength {
		return nil, validationf("value must be no more than %d characters long", f.maxLength)
	}

	if err := f.runValidators(s); err != nil {
		return nil, asValidationError(err)
	}
	return s, nil
}

// EmailField is a CharField that additionally requires the local@domain.tld
// shape. MaxLength defaults to 254.
type EmailField struct {
	CharField
}

// Email builds an email address field.
func Email(opts ...Option) *EmailField {
	c := applyOptions(opts)
	f := &EmailField{CharField{base: newBase(KindEmail, c), minLength: c.minLength, maxLength: defaultEmailMaxLength}}
	if c.maxLength != nil {
		f.maxLength = *c.maxLength
	}
	return f
}

func (f *EmailField) Validate(v any) (any, error) {
	out, err := f.CharField.Validate(v)
	if out == nil || err != nil {
		return out, err
	}
	s := out.(string)
	if !emailPattern.MatchString(s) {
		return nil, validationf("enter a valid email address")
	}
	return s, nil
}

// URL builds a CharField that accepts only http(s) URLs. The format check
// runs as the first validator, so caller-supplied validators only ever see
// well-formed URLs.
func URL(opts ...Option) *CharField {
	urlCheck := WithValidators(func(v any) error {
		if s, ok := v.(string); !ok || !urlPattern.MatchString(s) {
			return validationf("enter a valid URL")
		}
		return nil
	})
	c := applyOptions(append([]Option{urlCheck}, opts...))
	f := &CharField{base: newBase(KindURL, c), minLength: c.minLength, maxLength: defaultCharMaxLength}
	if c.maxLength != nil {
		f.maxLength = *c.maxLength
	}
	return f
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asValidationError(err error) *ValidationError {
	if ve, ok := err.(*ValidationError); ok {
		return ve
	}
	return &ValidationError{Message: err.Error()}
}
