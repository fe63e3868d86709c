package domain

import (
	"strings"
	"time"
)

// ApprovalStatus is the state of a single use approval token.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRecord binds an approval token to exactly one ticket.
type ApprovalRecord struct {
	Token      string
	TicketID   string
	Status     ApprovalStatus
	ApprovedBy *string
	DecidedAt  *time.Time
	CreatedAt  time.Time
}

// Callback actions carried by approval links.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// DecisionFromAction maps an approve/reject callback action to the resulting status.
func DecisionFromAction(action string) (ApprovalStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionApprove:
		return ApprovalApproved, true
	case ActionReject:
		return ApprovalRejected, true
	default:
		return "", false
	}
}

// TicketStatus returns the ticket status a decision moves the ticket to.
func (s ApprovalStatus) TicketStatus() TicketStatus {
	switch s {
	case ApprovalApproved:
		return TicketStatusApproved
	case ApprovalRejected:
		return TicketStatusRejected
	default:
		return TicketStatusPendingApproval
	}
}
