package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tt := range tests {
		got := New(tt.kind, "x").HTTPStatus()
		if got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestGetKindUnwrapsChain(t *testing.T) {
	base := NotFound("lead not found").WithOp("leads.get")
	wrapped := fmt.Errorf("handler: %w", base)

	if got := GetKind(wrapped); got != KindNotFound {
		t.Errorf("GetKind(wrapped) = %s, want %s", got, KindNotFound)
	}
	if !Is(wrapped, KindNotFound) {
		t.Error("Is(wrapped, KindNotFound) = false, want true")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Error("plain errors should have KindUnknown")
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "assign lead failed", cause).WithOp("assignment.assign")

	want := "assignment.assign: assign lead failed: connection reset"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}
