package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-assistant/internal/api/dto"
	"github.com/spec-kit/provisioning-assistant/internal/domain"
	apperrors "github.com/spec-kit/provisioning-assistant/pkg/errorutil"
)

// ApproverLogin authenticates approvers.
type ApproverLogin interface {
	Login(ctx context.Context, email, password string) (*domain.Approver, string, time.Time, error)
}

// AuthHandler serves approver login.
type AuthHandler struct {
	service ApproverLogin
}

// NewAuthHandler constructs handler.
func NewAuthHandler(svc ApproverLogin) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login POST /auth/approvers/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.ApproverLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	approver, token, exp, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Email:     approver.Email,
		Name:      approver.DisplayName,
	}})
}
