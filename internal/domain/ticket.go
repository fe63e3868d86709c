package domain

import "time"

// TicketStatus enumerates lifecycle states for provisioning tickets.
type TicketStatus string

const (
	TicketStatusPendingApproval TicketStatus = "Pending Approval"
	TicketStatusApproved        TicketStatus = "Approved"
	TicketStatusRejected        TicketStatus = "Rejected"
	TicketStatusInstalling      TicketStatus = "Installing"
	TicketStatusInstalled       TicketStatus = "Installed"
)

// Ticket is one tracked installation request for one software item.
type Ticket struct {
	ID            string
	Requester     string
	Software      string
	Version       string
	Status        TicketStatus
	ApprovalToken string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Label renders software and version the way audit entries record them.
func (t Ticket) Label() string {
	if t.Version == "" {
		return t.Software
	}
	return t.Software + " " + t.Version
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPendingApproval: {TicketStatusApproved, TicketStatusRejected},
	TicketStatusApproved:        {TicketStatusInstalling, TicketStatusInstalled},
	TicketStatusInstalling:      {TicketStatusInstalled},
	TicketStatusRejected:        {},
	TicketStatusInstalled:       {},
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusRejected || s == TicketStatusInstalled
}

// CanTransition reports whether current may move forward to next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PredecessorsOf lists the statuses allowed to move to next.
func PredecessorsOf(next TicketStatus) []TicketStatus {
	var out []TicketStatus
	for _, from := range []TicketStatus{
		TicketStatusPendingApproval,
		TicketStatusApproved,
		TicketStatusInstalling,
	} {
		if CanTransition(from, next) {
			out = append(out, from)
		}
	}
	return out
}
