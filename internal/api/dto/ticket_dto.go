package dto

import (
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// TicketResponse is a ticket with its derived approval status.
type TicketResponse struct {
	ID         string                `json:"id"`
	Requester  string                `json:"requester"`
	Software   string                `json:"software"`
	Version    string                `json:"version"`
	Status     domain.TicketStatus   `json:"status"`
	Approval   domain.ApprovalStatus `json:"approval"`
	ApprovedBy *string               `json:"approved_by,omitempty"`
	DecidedAt  *time.Time            `json:"decided_at,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// ActionLogResponse is one audit trail entry.
type ActionLogResponse struct {
	ID        string              `json:"id"`
	Actor     string              `json:"actor"`
	Software  string              `json:"software"`
	Status    domain.TicketStatus `json:"status"`
	Action    string              `json:"action"`
	Details   string              `json:"details"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewTicketResponse builds the response body without exposing the approval token.
func NewTicketResponse(ticket *domain.Ticket, approval domain.ApprovalStatus, record *domain.ApprovalRecord) TicketResponse {
	resp := TicketResponse{
		ID:        ticket.ID,
		Requester: ticket.Requester,
		Software:  ticket.Software,
		Version:   ticket.Version,
		Status:    ticket.Status,
		Approval:  approval,
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
	}
	if record != nil {
		resp.ApprovedBy = record.ApprovedBy
		resp.DecidedAt = record.DecidedAt
	}
	return resp
}

// NewActionLogResponses converts audit entries.
func NewActionLogResponses(entries []domain.ActionLogEntry) []ActionLogResponse {
	out := make([]ActionLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ActionLogResponse{
			ID:        e.ID,
			Actor:     e.Actor,
			Software:  e.Software,
			Status:    e.Status,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
