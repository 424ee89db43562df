package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("doctor %s not found", "x"), KindNotFound},
		{"wrapped conflict", fmt.Errorf("create: %w", Conflict("taken")), KindConflict},
		{"plain error", errors.New("boom"), KindUnhandled},
		{"validation", Validation([]FieldError{{Field: "email", Message: "required"}}), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorsIs_Sentinel(t *testing.T) {
	err := fmt.Errorf("update: %w", Forbidden("not yours"))
	if !errors.Is(err, ErrForbidden) {
		t.Error("expected errors.Is to match ErrForbidden")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("did not expect errors.Is to match ErrNotFound")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindInvalidArgument: http.StatusBadRequest,
		KindConflict:        http.StatusBadRequest,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindUnhandled:       http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestError_MessageIncludesFieldsAndCause(t *testing.T) {
	v := Validation([]FieldError{{Field: "national_id", Message: "must contain only digits"}})
	if got := v.Error(); got != "one or more validation errors occurred (national_id: must contain only digits)" {
		t.Errorf("unexpected message: %s", got)
	}

	cause := errors.New("duplicate key")
	w := Wrap(KindConflict, cause, "email already registered")
	if !errors.Is(w, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
	if w.Error() != "email already registered: duplicate key" {
		t.Errorf("unexpected message: %s", w.Error())
	}
}
