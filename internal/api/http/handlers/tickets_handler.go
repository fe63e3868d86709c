package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-assistant/internal/api/dto"
	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/service"
)

// TicketQueries is the read side used by the tickets handler.
type TicketQueries interface {
	Status(ctx context.Context, ticketID string) (*service.TicketStatusView, error)
	History(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error)
}

// TicketsHandler serves ticket status queries.
type TicketsHandler struct {
	service TicketQueries
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketQueries) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.service.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(view.Ticket, view.Approval, view.Record)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActionLogResponses(entries)})
}
