package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/events"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
	apperrors "github.com/spec-kit/provisioning-assistant/pkg/errorutil"
)

// ApprovalService handles approve and reject callbacks.
type ApprovalService struct {
	approvals       repository.ApprovalRegistry
	tickets         repository.TicketStore
	dispatcher      events.Dispatcher
	defaultApprover string
	logger          *zap.Logger
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	Approvals  repository.ApprovalRegistry
	Tickets    repository.TicketStore
	Dispatcher events.Dispatcher
	// DefaultApprover is recorded when a callback carries no identity.
	DefaultApprover string
	Logger          *zap.Logger
}

// ApprovalOutcome describes a resolved callback.
type ApprovalOutcome struct {
	TicketID string
	Decision domain.ApprovalStatus
	Approver string
	Ticket   *domain.Ticket
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	if deps.Dispatcher == nil {
		deps.Dispatcher = events.NewInMemoryDispatcher()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ApprovalService{
		approvals:       deps.Approvals,
		tickets:         deps.Tickets,
		dispatcher:      deps.Dispatcher,
		defaultApprover: deps.DefaultApprover,
		logger:          deps.Logger,
	}
}

// HandleCallback resolves token with the decision named by action.
func (s *ApprovalService) HandleCallback(ctx context.Context, action, token, approver string) (*ApprovalOutcome, error) {
	decision, ok := domain.DecisionFromAction(action)
	if !ok {
		return nil, apperrors.NewValidationError("unknown approval action", map[string]any{"action": action})
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidationError("approval token is required", nil)
	}
	approver = strings.TrimSpace(approver)
	if approver == "" {
		approver = s.defaultApprover
	}

	ticketID, err := s.approvals.Resolve(ctx, token, decision, approver)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Warn("approval callback rejected", zap.String("action", action), zap.Error(err))
			_ = s.dispatcher.Publish(ctx, events.New(events.EventInvalidToken, "", events.Actor{Type: events.ActorApprover, ID: approver}, nil))
			return nil, apperrors.NewInvalidToken()
		}
		return nil, err
	}

	outcome := &ApprovalOutcome{TicketID: ticketID, Decision: decision, Approver: approver}
	payload := events.ApprovalResolvedPayload{Decision: decision}
	if ticket, err := s.tickets.GetTicket(ctx, ticketID); err == nil {
		outcome.Ticket = ticket
		payload.Software = ticket.Label()
	} else {
		s.logger.Warn("resolved ticket could not be reloaded", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	_ = s.dispatcher.Publish(ctx, events.New(events.EventApprovalResolved, ticketID, events.Actor{Type: events.ActorApprover, ID: approver}, payload))
	return outcome, nil
}
