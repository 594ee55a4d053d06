package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Paths that don't require tenant identification.
var tenantSkipPaths = []string{
	"/api/health",
}

// TenantMiddleware resolves app_id from the X-App-ID header, falling back to
// the app_id query parameter, and rejects unknown tenants.
func TenantMiddleware(registry *tenant.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, skip := range tenantSkipPaths {
			if strings.HasPrefix(path, skip) {
				return c.Next()
			}
		}

		// Copied: the value outlives the request in stored rows and log batches.
		appID := utils.CopyString(c.Get("X-App-ID"))
		if appID == "" {
			appID = utils.CopyString(c.Query("app_id"))
		}
		if appID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "X-App-ID header is required")
		}
		if !registry.Exists(appID) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown app: "+appID)
		}

		tenant.SetAppID(c, appID)
		return c.Next()
	}
}
