package validator

import (
	"testing"

	"marketplace_backend/platform/apperr"
)

type intakeRequest struct {
	Name   string `json:"customerName" validate:"required,max=5"`
	Email  string `json:"customerEmail" validate:"required,email"`
	Source string `json:"source" validate:"omitempty,oneof=website referral"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	v := New()

	err := v.Struct(intakeRequest{Name: "too long name", Email: "nope", Source: "fax"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}

	appErr, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	fields, ok := appErr.Details.([]FieldError)
	if !ok || len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %#v", appErr.Details)
	}

	want := map[string]string{"customerName": "max", "customerEmail": "email", "source": "oneof"}
	for _, f := range fields {
		if want[f.Field] != f.Rule {
			t.Errorf("field %s: expected rule %q, got %q", f.Field, want[f.Field], f.Rule)
		}
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := New().Struct(intakeRequest{Name: "Ann", Email: "ann@example.com"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}
