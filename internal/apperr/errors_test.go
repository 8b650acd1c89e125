package apperr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("booking: %w", Validation("time", "slot is full"))

	e, ok := As(err)
	if !ok {
		t.Fatal("expected wrapped *Error to be found")
	}
	if e.Field != "time" {
		t.Errorf("expected field time, got %q", e.Field)
	}
	if !IsKind(err, KindValidation) {
		t.Error("expected validation kind")
	}
	if IsKind(err, KindNotFound) {
		t.Error("did not expect not-found kind")
	}
}

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
		code   string
	}{
		{KindValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{KindAuthentication, http.StatusUnauthorized, "AUTHENTICATION_ERROR"},
		{KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{KindConflict, http.StatusConflict, "DUPLICATE_ERROR"},
		{Kind(0), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		status, code := tt.kind.Status()
		if status != tt.status || code != tt.code {
			t.Errorf("kind %d: got (%d, %s), want (%d, %s)", tt.kind, status, code, tt.status, tt.code)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	if got := NotFound("reward").Error(); got != "reward not found" {
		t.Errorf("unexpected message %q", got)
	}
	if got := Validation("tokens", "need %d more", 5).Error(); got != "tokens: need 5 more" {
		t.Errorf("unexpected message %q", got)
	}
}
