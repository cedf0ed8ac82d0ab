package fields

import (
	"fmt"
	"time"
)

// DateTimeField holds a timestamp canonicalized to an RFC 3339 string, which
// is also how it is stored in the TEXT column.
type DateTimeField struct {
	base
}

// DateTime builds a timestamp field.
func DateTime(opts ...Option) *DateTimeField {
	return &DateTimeField{base: newBase(KindDateTime, applyOptions(opts))}
}

func (f *DateTimeField) Validate(v any) (any, error) {
	done, err := f.checkNil(v)
	if done || err != nil {
		return nil, err
	}

	var s string
	switch t := v.(type) {
	case time.Time:
		s = t.Format(time.RFC3339)
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		s = fmt.Sprintf("%v", v)
	}

	if err := f.runValidators(s); err != nil {
		return nil, asValidationError(err)
	}
	return s, nil
}
