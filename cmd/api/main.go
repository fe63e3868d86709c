package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/provisioning-assistant/internal/api/http"
	"github.com/spec-kit/provisioning-assistant/internal/api/http/handlers"
	"github.com/spec-kit/provisioning-assistant/internal/app"
	"github.com/spec-kit/provisioning-assistant/internal/auth"
	"github.com/spec-kit/provisioning-assistant/internal/config"
	"github.com/spec-kit/provisioning-assistant/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to wire application", zap.Error(err))
	}
	defer container.Close()

	authMiddleware := auth.NewAuthMiddleware(container.AuthService.TokenManager(), container.Approvers)

	server := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, container.Metrics, cfg.App.RequestTimeout())

	dependencies := map[string]handlers.Pinger{"store": container.Store}
	if container.Redis != nil {
		dependencies["redis"] = container.Redis
	}

	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Requests:       handlers.NewRequestsHandler(container.Workflow),
		Tickets:        handlers.NewTicketsHandler(container.TicketService),
		Approvals:      handlers.NewApprovalsHandler(container.ApprovalService),
		Auth:           handlers.NewAuthHandler(container.AuthService),
		AuthMiddleware: authMiddleware,
		Metrics:        container.Metrics.Handler(),
	})

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
