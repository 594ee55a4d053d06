package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// Me returns the authenticated account.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	acc := tenant.GetAccount(c)
	if acc == nil {
		return services.ErrUnauthorized
	}
	return respond(c, fiber.StatusOK, dto.NewAccountResponse(acc), "")
}

func (h *AccountHandler) List(c *fiber.Ctx) error {
	accounts, err := h.accountService.List(c.UserContext(), tenant.GetAppID(c), tenant.GetAccount(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewAccountList(accounts), "")
}

func (h *AccountHandler) Get(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	acc, err := h.accountService.Get(c.UserContext(), tenant.GetAppID(c), tenant.GetAccount(c), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewAccountResponse(acc), "")
}

func (h *AccountHandler) Update(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	acc, err := h.accountService.Update(c.UserContext(), tenant.GetAppID(c), tenant.GetAccount(c), id, &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewAccountResponse(acc), "Account updated")
}

func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	acc, err := h.accountService.Delete(c.UserContext(), tenant.GetAppID(c), tenant.GetAccount(c), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewAccountResponse(acc), "Account deleted")
}

func accountID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid account id")
	}
	return id, nil
}
