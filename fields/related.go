package fields

// ForeignKeyField holds a bare integer reference to another model's id.
// Validation only checks that the value coerces to an integer; referential
// existence is not verified.
type ForeignKeyField struct {
	base
	to string
}

// ForeignKey builds a reference to the named model.
func ForeignKey(to string, opts ...Option) *ForeignKeyField {
	return &ForeignKeyField{base: newBase(KindForeignKey, applyOptions(opts)), to: to}
}

// To reports the target model name.
func (f *ForeignKeyField) To() string { return f.to }

func (f *ForeignKeyField) Validate(v any) (any, error) {
	done, err := f.checkNil(v)
	if done || err != nil {
		return nil, err
	}

	n, ok := coerceInt64(v)
	if !ok {
		return nil, validationf("foreign key must be an integer")
	}

	if err := f.runValidators(n); err != nil {
		return nil, asValidationError(err)
	}
	return n, nil
}
