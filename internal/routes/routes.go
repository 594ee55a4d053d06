package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Account *handlers.AccountHandler
	Avatar  *handlers.AvatarHandler
	Health  *handlers.HealthHandler
}

// Limits are requests per minute per IP.
type Limits struct {
	API  int
	Auth int
}

// Setup mounts every route under /api. session must be the RequireSession
// middleware; storage backs the rate limiters and may be nil for in-memory
// counters.
func Setup(app *fiber.App, h Handlers, session fiber.Handler, storage fiber.Storage, limits Limits) {
	api := app.Group("/api")

	api.Use(rateLimit("api", limits.API, storage))

	// Health (no tenant required)
	api.Get("/health", h.Health.Check)

	v1 := api.Group("/v1")

	// OTP, login and refresh get the stricter limit.
	authLimit := rateLimit("auth", limits.Auth, storage)
	v1.Get("/otp/:email", authLimit, h.Auth.SendOTP)
	v1.Post("/login", authLimit, h.Auth.Login)
	v1.Post("/refreshToken", authLimit, h.Auth.Refresh)
	v1.Post("/register", h.Auth.Register)

	v1.Post("/logout", session, h.Auth.Logout)

	v1.Get("/user", session, h.Account.Me)
	v1.Get("/users", session, middleware.AdminOnly(), h.Account.List)
	v1.Get("/user/:id", session, h.Account.Get)
	v1.Put("/user/:id", session, h.Account.Update)
	v1.Delete("/user/:id", session, h.Account.Delete)

	v1.Post("/updateAvatar/:id", session, h.Avatar.Upload)
	v1.Delete("/updateAvatar/:id", session, h.Avatar.Delete)
}

// rateLimit keys counters by scope so limiters sharing one storage don't
// count each other's hits.
func rateLimit(scope string, max int, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return scope + ":" + c.IP() },
		Storage:           storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:      true,
				StatusCode: fiber.StatusTooManyRequests,
				Message:    "Too many requests, try again later",
			})
		},
	})
}
