package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"not found", fmt.Errorf("get: %w", domain.ErrTicketNotFound), "NOT_FOUND", http.StatusNotFound},
		{"invalid token", domain.ErrInvalidToken, "INVALID_OR_EXPIRED_TOKEN", http.StatusConflict},
		{"store", fmt.Errorf("%w: dial tcp", domain.ErrStoreUnavailable), "STORE_UNAVAILABLE", http.StatusServiceUnavailable},
		{"credentials", domain.ErrInvalidCredentials, "UNAUTHORIZED", http.StatusUnauthorized},
		{"transition", fmt.Errorf("%w: Installed -> Approved", domain.ErrInvalidTransition), "INVALID_TRANSITION", http.StatusConflict},
		{"other", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
		{"passthrough", NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			if de.Code != tc.code || de.HTTPStatus != tc.status {
				t.Fatalf("got %s/%d, want %s/%d", de.Code, de.HTTPStatus, tc.code, tc.status)
			}
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	if err := MapError(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestInvalidTokenUnwraps(t *testing.T) {
	if !errors.Is(NewInvalidToken(), domain.ErrInvalidToken) {
		t.Fatal("invalid token error should unwrap to domain.ErrInvalidToken")
	}
}
