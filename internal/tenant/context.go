package tenant

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

const (
	appIDKey   = "app_id"
	accountKey = "account"
)

// GetAppID extracts the app_id from Fiber context locals.
func GetAppID(c *fiber.Ctx) string {
	if appID, ok := c.Locals(appIDKey).(string); ok {
		return appID
	}
	return ""
}

func SetAppID(c *fiber.Ctx, appID string) {
	c.Locals(appIDKey, appID)
}

// GetAccount returns the account attached by the session middleware, or nil
// when the request is anonymous.
func GetAccount(c *fiber.Ctx) *models.Account {
	if acc, ok := c.Locals(accountKey).(*models.Account); ok {
		return acc
	}
	return nil
}

func SetAccount(c *fiber.Ctx, acc *models.Account) {
	c.Locals(accountKey, acc)
}
