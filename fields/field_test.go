package fields_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quillorm/quill/fields"
)

func TestRequired(t *testing.T) {
	f := fields.Char(fields.Required())

	if _, err := f.Validate(nil); err == nil {
		t.Fatal("expected error for nil on required field")
	}

	optional := fields.Char()
	v, err := optional.Validate(nil)
	if err != nil {
		t.Fatalf("optional field rejected nil: %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil passthrough, got %v", v)
	}
}

func TestIntegerBoundsAndCoercion(t *testing.T) {
	f := fields.Integer(fields.MinValue(0), fields.MaxValue(100))

	v, err := f.Validate("50")
	if err != nil {
		t.Fatalf("numeric string rejected: %v", err)
	}
	if v != int64(50) {
		t.Fatalf("expected int64(50), got %T(%v)", v, v)
	}

	for _, bad := range []any{-1, 101, "101"} {
		if _, err := f.Validate(bad); err == nil {
			t.Errorf("expected bounds error for %v", bad)
		}
	}

	if _, err := f.Validate("not a number"); err == nil {
		t.Error("expected error for non-numeric string")
	}

	var ve *fields.ValidationError
	_, err = f.Validate(-1)
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestFloatBounds(t *testing.T) {
	f := fields.Float(fields.MinValue(0.5), fields.MaxValue(9.5))

	v, err := f.Validate(3)
	if err != nil {
		t.Fatalf("int rejected by float field: %v", err)
	}
	if v != float64(3) {
		t.Fatalf("expected float64(3), got %T(%v)", v, v)
	}

	if _, err := f.Validate(0.25); err == nil {
		t.Error("expected error below minimum")
	}
	if _, err := f.Validate("10.5"); err == nil {
		t.Error("expected error above maximum")
	}
}

func TestCharLength(t *testing.T) {
	f := fields.Char(fields.MaxLength(5), fields.MinLength(2))

	if _, err := f.Validate("abc"); err != nil {
		t.Fatalf("valid string rejected: %v", err)
	}
	if _, err := f.Validate("a"); err == nil {
		t.Error("expected error below minimum length")
	}
	if _, err := f.Validate("abcdef"); err == nil {
		t.Error("expected error above maximum length")
	}

	// Length is counted in characters, not bytes.
	if _, err := f.Validate("héllo"); err != nil {
		t.Errorf("5-character string rejected: %v", err)
	}
}

func TestCharDefaultMaxLength(t *testing.T) {
	f := fields.Char()
	if _, err := f.Validate(strings.Repeat("x", 255)); err != nil {
		t.Fatalf("255 characters rejected: %v", err)
	}
	if _, err := f.Validate(strings.Repeat("x", 256)); err == nil {
		t.Fatal("expected error above default maximum length")
	}
}

func TestTextAcceptsLongValues(t *testing.T) {
	f := fields.Text()
	if _, err := f.Validate(strings.Repeat("x", 10000)); err != nil {
		t.Fatalf("long text rejected: %v", err)
	}
}

func TestEmail(t *testing.T) {
	f := fields.Email()

	valid := []string{
		"user@example.com",
		"first.last+tag@sub.domain.org",
		"a_b%c@host.io",
	}
	for _, v := range valid {
		if _, err := f.Validate(v); err != nil {
			t.Errorf("valid email %q rejected: %v", v, err)
		}
	}

	invalid := []string{
		"not-an-email",
		"missing@tld",
		"@example.com",
		"user@.com",
		"user@example.c",
	}
	for _, v := range invalid {
		if _, err := f.Validate(v); err == nil {
			t.Errorf("invalid email %q accepted", v)
		}
	}
}

func TestURL(t *testing.T) {
	f := fields.URL()

	valid := []string{
		"http://example.com",
		"https://example.com:8080/path/to?x=1&y=2#frag",
	}
	for _, v := range valid {
		if _, err := f.Validate(v); err != nil {
			t.Errorf("valid url %q rejected: %v", v, err)
		}
	}

	invalid := []string{
		"ftp://example.com",
		"example.com",
		"https://",
	}
	for _, v := range invalid {
		if _, err := f.Validate(v); err == nil {
			t.Errorf("invalid url %q accepted", v)
		}
	}

	t.Run("format check runs before custom validators", func(t *testing.T) {
		reject := func(any) error { return errors.New("no urls today") }
		f := fields.URL(fields.WithValidators(reject))

		_, err := f.Validate("not a url")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "enter a valid URL") {
			t.Errorf("expected format error first, got %v", err)
		}

		if _, err := f.Validate("https://example.com"); err == nil || !strings.Contains(err.Error(), "no urls today") {
			t.Errorf("expected custom validator to run on well-formed url, got %v", err)
		}
	})
}

func TestBool(t *testing.T) {
	f := fields.Bool()

	truthy := []any{true, "true", "TRUE", "1", "yes", "Yes", "on", 1, 2.5}
	for _, v := range truthy {
		got, err := f.Validate(v)
		if err != nil {
			t.Errorf("truthy %v rejected: %v", v, err)
			continue
		}
		if got != true {
			t.Errorf("expected true for %v, got %v", v, got)
		}
	}

	// Strings outside the truth table coerce to false rather than erroring.
	falsy := []any{false, "false", "0", "no", "off", "maybe", 0, 0.0}
	for _, v := range falsy {
		got, err := f.Validate(v)
		if err != nil {
			t.Errorf("falsy %v rejected: %v", v, err)
			continue
		}
		if got != false {
			t.Errorf("expected false for %v, got %v", v, got)
		}
	}

	if _, err := f.Validate([]int{1}); err == nil {
		t.Error("expected error for non-coercible value")
	}
}

func TestForeignKey(t *testing.T) {
	f := fields.ForeignKey("User")

	if f.To() != "User" {
		t.Fatalf("expected target User, got %q", f.To())
	}

	v, err := f.Validate("7")
	if err != nil {
		t.Fatalf("numeric string rejected: %v", err)
	}
	if v != int64(7) {
		t.Fatalf("expected int64(7), got %T(%v)", v, v)
	}

	if _, err := f.Validate("alice"); err == nil {
		t.Error("expected error for non-integer reference")
	}
}

func TestDateTime(t *testing.T) {
	f := fields.DateTime()

	ts := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	v, err := f.Validate(ts)
	if err != nil {
		t.Fatalf("time.Time rejected: %v", err)
	}
	if v != "2024-06-01T12:30:00Z" {
		t.Fatalf("expected RFC 3339 string, got %v", v)
	}

	// Stored values come back as strings and pass through untouched.
	v, err = f.Validate("2024-06-01T12:30:00Z")
	if err != nil {
		t.Fatalf("string rejected: %v", err)
	}
	if v != "2024-06-01T12:30:00Z" {
		t.Fatalf("expected passthrough, got %v", v)
	}
}

func TestDefault(t *testing.T) {
	f := fields.Integer(fields.Default(42))
	if f.Default() != 42 {
		t.Fatalf("expected default 42, got %v", f.Default())
	}
}

func TestCustomValidators(t *testing.T) {
	even := func(v any) error {
		if n, ok := v.(int64); ok && n%2 != 0 {
			return errors.New("value must be even")
		}
		return nil
	}
	f := fields.Integer(fields.MinValue(0), fields.WithValidators(even))

	if _, err := f.Validate(4); err != nil {
		t.Fatalf("even value rejected: %v", err)
	}
	if _, err := f.Validate(3); err == nil {
		t.Fatal("expected custom validator error")
	}
	// Constraint checks run before custom validators.
	if _, err := f.Validate(-2); err == nil {
		t.Fatal("expected bounds error")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &fields.ValidationError{Field: "age", Message: "value must be at least 0"}
	want := `quill: invalid value for field "age": value must be at least 0`
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
