// Package validation runs declarative checks on command structs before a
// service acts on them. Struct tags cover field formats; Rules cover checks
// that need the clock or a repository.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Rule is a check on one field. Check returns a non-empty message when the
// field is invalid and an error only when the check itself could not run.
type Rule struct {
	Field string
	Check func(ctx context.Context) (string, error)
}

// Validator wraps a configured validator.Validate.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New returns a Validator using the wall clock.
func New() *Validator {
	return NewWithClock(time.Now)
}

// NewWithClock returns a Validator whose "future" tag compares against now.
func NewWithClock(now func() time.Time) *Validator {
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: now}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	val.v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		id, ok := f.Interface().(uuid.UUID)
		if !ok || id == uuid.Nil {
			return ""
		}
		return id.String()
	}, uuid.UUID{})

	val.v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})

	val.v.RegisterValidation("future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && t.After(val.now())
	})

	return val
}

// Validate checks s against its struct tags, then runs every rule whose
// field has not already failed. Failures are returned together as a
// validation error.
func (val *Validator) Validate(ctx context.Context, s interface{}, rules ...Rule) error {
	fields, err := val.structErrors(s)
	if err != nil {
		return err
	}

	failed := make(map[string]bool, len(fields))
	for _, f := range fields {
		failed[f.Field] = true
	}

	for _, r := range rules {
		if failed[r.Field] {
			continue
		}
		msg, err := r.Check(ctx)
		if err != nil {
			return fmt.Errorf("validate %s: %w", r.Field, err)
		}
		if msg != "" {
			fields = append(fields, apperr.FieldError{Field: r.Field, Message: msg})
			failed[r.Field] = true
		}
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func (val *Validator) structErrors(s interface{}) ([]apperr.FieldError, error) {
	err := val.v.Struct(s)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validate struct: %w", err)
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, apperr.FieldError{Field: name, Message: message(fe)})
	}
	return fields, nil
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", f, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", f, fe.Param())
	case "len":
		return fmt.Sprintf("%s should have %s characters", f, fe.Param())
	case "digits":
		return f + " must contain only digits"
	case "email":
		return f + " has an invalid format"
	case "future":
		return f + " cannot be in the past"
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", f, toJSONName(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed the %s check", f, fe.Tag())
	}
}

// toJSONName converts a Go field name used as a tag parameter to the
// snake_case name it has on the wire.
func toJSONName(goName string) string {
	var b strings.Builder
	for i, r := range goName {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MinLength is a Rule for a length bound only known at runtime.
func MinLength(field, value string, n int) Rule {
	return Rule{Field: field, Check: func(context.Context) (string, error) {
		if len([]rune(value)) < n {
			return fmt.Sprintf("%s must be at least %d characters long", field, n), nil
		}
		return "", nil
	}}
}
