package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-assistant/internal/api/dto"
	"github.com/spec-kit/provisioning-assistant/internal/workflow"
	apperrors "github.com/spec-kit/provisioning-assistant/pkg/errorutil"
)

const requesterHeader = "X-Requester"

// RequestWorkflow is the workflow surface used by the HTTP layer.
type RequestWorkflow interface {
	Run(ctx context.Context, requester, prompt string) (workflow.Result, error)
	Refresh(ctx context.Context, invocationID string) (workflow.Result, error)
	CheckTickets(ctx context.Context, requester string, ticketIDs []string) (workflow.Result, error)
}

// RequestsHandler exposes the workflow entry point.
type RequestsHandler struct {
	workflow RequestWorkflow
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(wf RequestWorkflow) *RequestsHandler {
	return &RequestsHandler{workflow: wf}
}

// Submit POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return apperrors.NewValidationError("prompt required", nil)
	}
	requester := req.Requester
	if requester == "" {
		requester = c.Get(requesterHeader)
	}

	result, err := h.workflow.Run(c.UserContext(), requester, req.Prompt)
	if err != nil {
		if len(result.Items) > 0 {
			return apperrors.WithData(err, result)
		}
		return err
	}
	status := http.StatusOK
	if result.Summary.Total > 0 {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": result})
}

// Get GET /requests/:id re-runs the approval check for a stored request.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	result, err := h.workflow.Refresh(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, workflow.ErrInvocationNotFound) {
			return apperrors.NewNotFound("request", map[string]any{"id": c.Params("id")})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Check POST /requests/check runs the approval check over explicit ticket ids.
func (h *RequestsHandler) Check(c *fiber.Ctx) error {
	var req dto.CheckTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids required", nil)
	}
	requester := req.Requester
	if requester == "" {
		requester = c.Get(requesterHeader)
	}
	result, err := h.workflow.CheckTickets(c.UserContext(), requester, req.TicketIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
