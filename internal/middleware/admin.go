package middleware

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/policy"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

// AdminOnly must run after RequireSession. Role comes from the stored
// account, not from token claims, so a demotion takes effect immediately.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := tenant.GetAccount(c)
		if actor == nil {
			return services.ErrUnauthorized
		}
		if !policy.CanReadAll(actor) {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}
