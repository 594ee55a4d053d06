package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
)

const avatarField = "image"

type AvatarHandler struct {
	avatarService *services.AvatarService
}

func NewAvatarHandler(avatarService *services.AvatarService) *AvatarHandler {
	return &AvatarHandler{avatarService: avatarService}
}

func (h *AvatarHandler) Upload(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}

	// A missing part is reported by the service after authorization.
	var file *services.AvatarFile
	if fh, err := c.FormFile(avatarField); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Unreadable upload")
		}
		defer f.Close()
		file = &services.AvatarFile{Name: fh.Filename, Content: f}
	}

	acc, err := h.avatarService.Upload(c.UserContext(), tenant.GetAppID(c), tenant.GetAccount(c), id, file)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewAccountResponse(acc), "Avatar updated")
}

func (h *AvatarHandler) Delete(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	acc, err := h.avatarService.Delete(c.UserContext(), tenant.GetAppID(c), tenant.GetAccount(c), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewAccountResponse(acc), "Avatar removed")
}
