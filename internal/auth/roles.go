package auth

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireApprover ensures an approver is authenticated. When domains are given
// the approver's email must belong to one of them.
func RequireApprover(domains ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			allowed[d] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		email := principal.Approver.Email
		at := strings.LastIndex(email, "@")
		if at < 0 {
			return fiber.NewError(http.StatusForbidden, "approver domain not allowed")
		}
		if _, exists := allowed[strings.ToLower(email[at+1:])]; !exists {
			return fiber.NewError(http.StatusForbidden, "approver domain not allowed")
		}
		return c.Next()
	}
}
