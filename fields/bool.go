package fields

import "strings"

// BooleanField holds a boolean. Strings map through a small truth table:
// "true", "1", "yes" and "on" (case-insensitive) are true, any other string
// is false. Numeric values are true when non-zero.
type BooleanField struct {
	base
}

// Bool builds a boolean field.
func Bool(opts ...Option) *BooleanField {
	return &BooleanField{base: newBase(KindBool, applyOptions(opts))}
}

func (f *BooleanField) Validate(v any) (any, error) {
	done, err := f.checkNil(v)
	if done || err != nil {
		return nil, err
	}

	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		b = truthyString(t)
	case []byte:
		b = truthyString(string(t))
	default:
		n, ok := coerceFloat64(v)
		if !ok {
			return nil, validationf("value must be a boolean")
		}
		b = n != 0
	}

	if err := f.runValidators(b); err != nil {
		return nil, asValidationError(err)
	}
	return b, nil
}

func truthyString(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
