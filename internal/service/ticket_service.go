package service

import (
	"context"
	"errors"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
)

// TicketService answers ticket status queries.
type TicketService struct {
	tickets   repository.TicketStore
	approvals repository.ApprovalRegistry
}

// TicketStatusView is a ticket with its derived approval status.
type TicketStatusView struct {
	Ticket   *domain.Ticket
	Approval domain.ApprovalStatus
	Record   *domain.ApprovalRecord
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketStore, approvals repository.ApprovalRegistry) *TicketService {
	return &TicketService{tickets: tickets, approvals: approvals}
}

// Status returns ticket details and approval status. Store failures are
// returned as errors rather than a default status.
func (s *TicketService) Status(ctx context.Context, ticketID string) (*TicketStatusView, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	view := &TicketStatusView{Ticket: ticket, Approval: domain.ApprovalPending}
	record, err := s.approvals.GetByTicket(ctx, ticketID)
	switch {
	case err == nil:
		view.Record = record
		view.Approval = record.Status
	case errors.Is(err, domain.ErrTicketNotFound):
	default:
		return nil, err
	}
	return view, nil
}

// History returns the audit trail of a ticket for display.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error) {
	if _, err := s.tickets.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.tickets.ListActions(ctx, ticketID)
}
