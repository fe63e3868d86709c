package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/provisioning-assistant/internal/api/http/handlers"
	"github.com/spec-kit/provisioning-assistant/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Requests       *handlers.RequestsHandler
	Tickets        *handlers.TicketsHandler
	Approvals      *handlers.ApprovalsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	requests := app.Group("/requests")
	requests.Post("/", cfg.Requests.Submit)
	requests.Post("/check", cfg.Requests.Check)
	requests.Get("/:id", cfg.Requests.Get)

	tickets := app.Group("/tickets")
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)

	approvals := app.Group("/approvals")
	approvals.Post("/decisions", cfg.AuthMiddleware.Handle, auth.RequireApprover(), cfg.Approvals.Decide)
	approvals.Get("/:action", cfg.Approvals.Link)

	authGroup := app.Group("/auth")
	authGroup.Post("/approvers/login", cfg.Auth.Login)
}
