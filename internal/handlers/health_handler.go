package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping     func(ctx context.Context) error
	registry *tenant.Registry
}

func NewHealthHandler(ping func(ctx context.Context) error, registry *tenant.Registry) *HealthHandler {
	return &HealthHandler{ping: ping, registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, dbStatus, code := "ok", "ok", fiber.StatusOK
	if err := h.ping(ctx); err != nil {
		status, dbStatus, code = "degraded", "unhealthy: "+err.Error(), fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		AppCount:  len(h.registry.All()),
	})
}
