package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInvalidTransition, http.StatusUnprocessableEntity},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tc := range tests {
		got := New(tc.kind, "x").HTTPStatus()
		if got != tc.want {
			t.Errorf("kind %s: expected status %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestGetKindFollowsWrappedErrors(t *testing.T) {
	base := Conflict("mutation already in progress")
	wrapped := fmt.Errorf("update status: %w", base)

	if GetKind(wrapped) != KindConflict {
		t.Fatalf("expected conflict kind through wrapping, got %s", GetKind(wrapped))
	}
	if !Is(wrapped, KindConflict) {
		t.Fatal("expected Is to match wrapped conflict")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected unknown kind for untyped error")
	}
}

func TestRetryableKinds(t *testing.T) {
	if !KindConflict.Retryable() || !KindUnavailable.Retryable() {
		t.Fatal("conflict and unavailable must be retryable")
	}
	if KindNotFound.Retryable() || KindInvalidTransition.Retryable() || KindForbidden.Retryable() {
		t.Fatal("policy and lifecycle failures must not be retryable")
	}
}

func TestUnavailableUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Unavailable("store unavailable", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
	if err.Error() != "store unavailable" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if got := err.WithOp("leads.update").Error(); got != "leads.update: store unavailable" {
		t.Fatalf("unexpected message with op %q", got)
	}
}
