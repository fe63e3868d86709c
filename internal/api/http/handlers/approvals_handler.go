package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-assistant/internal/api/dto"
	"github.com/spec-kit/provisioning-assistant/internal/auth"
	"github.com/spec-kit/provisioning-assistant/internal/service"
	apperrors "github.com/spec-kit/provisioning-assistant/pkg/errorutil"
)

// ApprovalCallbacks resolves approve and reject callbacks.
type ApprovalCallbacks interface {
	HandleCallback(ctx context.Context, action, token, approver string) (*service.ApprovalOutcome, error)
}

// ApprovalsHandler serves approval links and card submissions.
type ApprovalsHandler struct {
	service ApprovalCallbacks
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvals ApprovalCallbacks) *ApprovalsHandler {
	return &ApprovalsHandler{service: approvals}
}

// Link GET /approvals/:action?token=... records the configured approver.
func (h *ApprovalsHandler) Link(c *fiber.Ctx) error {
	outcome, err := h.service.HandleCallback(c.UserContext(), c.Params("action"), c.Query("token"), "")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": decisionResponse(outcome)})
}

// Decide POST /approvals/decisions records the authenticated approver.
func (h *ApprovalsHandler) Decide(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("approver required")
	}
	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	outcome, err := h.service.HandleCallback(c.UserContext(), req.Action, req.Token, principal.Approver.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": decisionResponse(outcome)})
}

func decisionResponse(o *service.ApprovalOutcome) dto.DecisionResponse {
	return dto.NewDecisionResponse(o.TicketID, o.Decision, o.Approver, o.Ticket)
}
