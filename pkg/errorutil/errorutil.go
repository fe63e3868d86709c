package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Data       any // partial result rendered next to the error
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithData returns a copy of err's DomainError carrying data.
func WithData(err error, data any) *DomainError {
	base := ToDomainError(err)
	if base == nil {
		return nil
	}
	cp := *base
	cp.Data = data
	return &cp
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

// NewInvalidToken reports an approval callback against an unknown or already resolved token.
func NewInvalidToken() error {
	return &DomainError{
		Code:       "INVALID_OR_EXPIRED_TOKEN",
		Message:    "invalid or expired approval token",
		HTTPStatus: http.StatusConflict,
		Err:        domain.ErrInvalidToken,
	}
}

// NewStoreUnavailable reports that the durable store could not be reached.
func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "ticket store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var target error
	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		target = NewNotFound("ticket", nil)
	case errors.Is(err, domain.ErrApproverNotFound):
		target = NewNotFound("approver", nil)
	case errors.Is(err, domain.ErrInvalidToken):
		target = NewInvalidToken()
	case errors.Is(err, domain.ErrInvalidCredentials):
		target = NewUnauthorized("invalid credentials")
	case errors.Is(err, domain.ErrInvalidTransition):
		target = NewDomainError("INVALID_TRANSITION", "ticket cannot move to the requested status", http.StatusConflict, nil)
	case errors.Is(err, domain.ErrStoreUnavailable):
		target = NewStoreUnavailable(err)
	default:
		target = NewInternalError(err)
	}
	de, _ := target.(*DomainError)
	return de
}

// MapError converts any error to its DomainError form.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
