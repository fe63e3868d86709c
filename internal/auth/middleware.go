package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
	apperrors "github.com/spec-kit/provisioning-assistant/pkg/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated approver.
type Principal struct {
	Approver *domain.Approver
}

// AuthMiddleware validates bearer tokens and loads approvers.
type AuthMiddleware struct {
	tokens    *TokenManager
	approvers repository.ApproverRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, approvers repository.ApproverRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, approvers: approvers}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	approver, err := m.approvers.GetByEmail(c.UserContext(), claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrApproverNotFound) {
			return apperrors.NewUnauthorized("approver not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{Approver: approver})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal.Approver != nil
}
