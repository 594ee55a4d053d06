package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows credentials (the token cookies) only for an explicit origin
// list; fiber refuses credentials with a wildcard origin.
func CORS(cfg *config.Config) fiber.Handler {
	origins := strings.TrimSpace(cfg.CORSOrigins)
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-App-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: origins != "*" && origins != "",
		ExposeHeaders:    "X-Request-ID",
		MaxAge:           600,
	})
}
