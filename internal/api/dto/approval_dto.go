package dto

import (
	"fmt"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// DecisionRequest payload for card submissions.
type DecisionRequest struct {
	Action string `json:"action"`
	Token  string `json:"token"`
}

// DecisionResponse reports a resolved approval.
type DecisionResponse struct {
	TicketID string                `json:"ticket_id"`
	Decision domain.ApprovalStatus `json:"decision"`
	Approver string                `json:"approver"`
	Status   domain.TicketStatus   `json:"status,omitempty"`
	Software string                `json:"software,omitempty"`
	Message  string                `json:"message"`
}

// NewDecisionResponse describes a resolved token. ticket may be nil.
func NewDecisionResponse(ticketID string, decision domain.ApprovalStatus, approver string, ticket *domain.Ticket) DecisionResponse {
	resp := DecisionResponse{
		TicketID: ticketID,
		Decision: decision,
		Approver: approver,
		Message:  fmt.Sprintf("Ticket %s %s by %s", ticketID, decision, approver),
	}
	if ticket != nil {
		resp.Status = ticket.Status
		resp.Software = ticket.Label()
	}
	return resp
}
