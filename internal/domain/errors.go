package domain

import "errors"

var (
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrApproverNotFound   = errors.New("approver not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrCatalogMiss        = errors.New("software not found in catalog")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
