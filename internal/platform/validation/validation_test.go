package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

type bookingInput struct {
	DoctorID uuid.UUID `json:"doctor_id" validate:"required"`
	Start    time.Time `json:"start" validate:"required,future"`
	End      time.Time `json:"end" validate:"required,gtfield=Start"`
}

type personInput struct {
	FirstName  string `json:"first_name" validate:"required,max=50"`
	NationalID string `json:"national_id" validate:"required,len=13,digits"`
	Email      string `json:"email" validate:"required,email,max=100"`
}

var fixedNow = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return NewWithClock(func() time.Time { return fixedNow })
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	out := make(map[string]string, len(appErr.Fields))
	for _, f := range appErr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidate_Booking(t *testing.T) {
	v := newTestValidator()
	start := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name   string
		in     bookingInput
		fields map[string]string
	}{
		{
			name: "valid",
			in:   bookingInput{DoctorID: uuid.New(), Start: start, End: start.Add(30 * time.Minute)},
		},
		{
			name:   "nil doctor",
			in:     bookingInput{Start: start, End: start.Add(time.Hour)},
			fields: map[string]string{"doctor_id": "doctor_id is required"},
		},
		{
			name:   "past start",
			in:     bookingInput{DoctorID: uuid.New(), Start: fixedNow.Add(-time.Hour), End: fixedNow},
			fields: map[string]string{"start": "start cannot be in the past"},
		},
		{
			name:   "end before start",
			in:     bookingInput{DoctorID: uuid.New(), Start: start, End: start.Add(-time.Minute)},
			fields: map[string]string{"end": "end must be after start"},
		},
		{
			name:   "end equals start",
			in:     bookingInput{DoctorID: uuid.New(), Start: start, End: start},
			fields: map[string]string{"end": "end must be after start"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.in)
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			got := fieldErrors(t, err)
			for field, msg := range tt.fields {
				if got[field] != msg {
					t.Errorf("field %s: expected %q, got %q", field, msg, got[field])
				}
			}
		})
	}
}

func TestValidate_PersonFormats(t *testing.T) {
	v := newTestValidator()
	err := v.Validate(context.Background(), personInput{
		FirstName:  "",
		NationalID: "19001011234AB",
		Email:      "not-an-email",
	})
	got := fieldErrors(t, err)

	want := map[string]string{
		"first_name":  "first_name is required",
		"national_id": "national_id must contain only digits",
		"email":       "email has an invalid format",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("field %s: expected %q, got %q", field, msg, got[field])
		}
	}

	err = v.Validate(context.Background(), personInput{FirstName: "Ion", NationalID: "123", Email: "ion@example.com"})
	got = fieldErrors(t, err)
	if got["national_id"] != "national_id should have 13 characters" {
		t.Errorf("unexpected length message: %q", got["national_id"])
	}
}

func TestValidate_RulesSkipFailedFields(t *testing.T) {
	v := newTestValidator()
	called := false
	rule := Rule{Field: "national_id", Check: func(context.Context) (string, error) {
		called = true
		return "already used", nil
	}}

	err := v.Validate(context.Background(), personInput{FirstName: "Ion", NationalID: "12", Email: "a@b.co"}, rule)
	fieldErrors(t, err)
	if called {
		t.Error("rule must not run for a field that already failed")
	}
}

func TestValidate_RuleFailureAndError(t *testing.T) {
	v := newTestValidator()
	ok := personInput{FirstName: "Ion", NationalID: "1900101123456", Email: "ion@example.com"}

	taken := Rule{Field: "national_id", Check: func(context.Context) (string, error) {
		return "a patient with this national id already exists", nil
	}}
	got := fieldErrors(t, v.Validate(context.Background(), ok, taken))
	if got["national_id"] != "a patient with this national id already exists" {
		t.Errorf("unexpected rule message: %v", got)
	}

	boom := errors.New("db down")
	broken := Rule{Field: "email", Check: func(context.Context) (string, error) { return "", boom }}
	err := v.Validate(context.Background(), ok, broken)
	if !errors.Is(err, boom) {
		t.Fatalf("expected repository error to propagate, got %v", err)
	}
	if apperr.IsKind(err, apperr.KindValidation) {
		t.Error("a failed check is not a validation failure")
	}
}

func TestMinLength(t *testing.T) {
	v := newTestValidator()
	ok := personInput{FirstName: "Ion", NationalID: "1900101123456", Email: "ion@example.com"}

	if err := v.Validate(context.Background(), ok, MinLength("password", "abcd", 4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := fieldErrors(t, v.Validate(context.Background(), ok, MinLength("password", "abc", 4)))
	if got["password"] != "password must be at least 4 characters long" {
		t.Errorf("unexpected message: %q", got["password"])
	}
}
