package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type AuthHandler struct {
	authService *services.AuthService
	otpIssuer   *services.OTPIssuer
	cookies     CookieConfig
}

func NewAuthHandler(authService *services.AuthService, otpIssuer *services.OTPIssuer, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, otpIssuer: otpIssuer, cookies: cookies}
}

// SendOTP handles GET /otp/:email.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	// The address is stored and mailed after the handler returns, so it must
	// not alias fiber's request buffer.
	addr := utils.CopyString(c.Params("email"))
	if err := h.otpIssuer.Issue(c.UserContext(), tenant.GetAppID(c), addr); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, nil, "OTP sent to your email")
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	acc, err := h.authService.Register(c.UserContext(), tenant.GetAppID(c), &req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewAccountResponse(acc), "Profile updated")
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	acc, pair, err := h.authService.Login(c.UserContext(), tenant.GetAppID(c), &req)
	if err != nil {
		return err
	}

	setTokenCookies(c, h.cookies, pair)
	return respond(c, fiber.StatusOK, dto.LoginResponse{
		UserInfo:     dto.NewAccountResponse(acc),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Login successful")
}

// Logout clears the session server-side and always expires the cookies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	err := h.authService.Logout(c.UserContext(), tenant.GetAppID(c), tenant.GetAccount(c))
	clearTokenCookies(c, h.cookies)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, nil, "Logged out successfully")
}

// Refresh takes the refresh token from its cookie, else the JSON body.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(middleware.RefreshCookie)
	if token == "" && len(c.Body()) > 0 {
		var req dto.RefreshRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		token = req.RefreshToken
	}

	pair, err := h.authService.Refresh(c.UserContext(), tenant.GetAppID(c), token)
	if err != nil {
		return err
	}

	setTokenCookies(c, h.cookies, pair)
	return respond(c, fiber.StatusOK, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Token refreshed")
}
