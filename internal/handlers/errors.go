package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

const internalMessage = "Internal server error"

// ErrorHandler renders every error as the uniform envelope. It is installed
// as fiber's ErrorHandler so handlers can simply return errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := classify(err)

	if code >= fiber.StatusInternalServerError {
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		slog.Error("request failed",
			"app_id", tenant.GetAppID(c),
			"request_id", requestID(c),
			"method", utils.CopyString(c.Method()),
			"path", utils.CopyString(c.Path()),
			"error", err.Error(),
		)
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:      true,
		StatusCode: code,
		Message:    message,
	})
}

// classify maps an error onto an HTTP status and the message shown to the
// client. Unknown errors never leak their text.
func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			return fe.Code, internalMessage
		}
		return fe.Code, fe.Message
	}

	switch {
	case errors.Is(err, services.ErrBadRequest),
		errors.Is(err, services.ErrInvalidCredential),
		errors.Is(err, services.ErrExpired):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrUpstream):
		return fiber.StatusBadGateway, err.Error()
	default:
		return fiber.StatusInternalServerError, internalMessage
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return utils.CopyString(id)
	}
	return utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID))
}

func respond(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(dto.SuccessResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}
