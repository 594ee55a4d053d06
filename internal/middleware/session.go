package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	accessTokenKey = "access_token"
)

// RequireSession authenticates the request from its access and refresh
// tokens and stores the acting account in the context. The access token is
// parsed by jwtware; the pair is then checked by the session verifier.
func RequireSession(tokens *services.TokenService, verifier *services.SessionVerifier) fiber.Handler {
	gate := jwtware.New(jwtware.Config{
		TokenLookup: "cookie:" + AccessCookie + ",header:" + fiber.HeaderAuthorization,
		AuthScheme:  "Bearer",
		KeyFunc:     tokens.Keyfunc(services.AccessToken),
		Claims:      &services.Claims{},
		ContextKey:  accessTokenKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return services.ErrInvalidToken
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			var claims *services.Claims
			if token, ok := c.Locals(accessTokenKey).(*jwt.Token); ok {
				claims, _ = token.Claims.(*services.Claims)
			}
			acc, err := verifier.Authenticate(c.UserContext(), tenant.GetAppID(c), claims, RefreshToken(c))
			if err != nil {
				return err
			}
			tenant.SetAccount(c, acc)
			return c.Next()
		},
	})

	return func(c *fiber.Ctx) error {
		if AccessToken(c) == "" || RefreshToken(c) == "" {
			return services.ErrMissingTokens
		}
		return gate(c)
	}
}

// AccessToken reads the access token from its cookie, else the bearer
// header.
func AccessToken(c *fiber.Ctx) string {
	if v := c.Cookies(AccessCookie); v != "" {
		return v
	}
	return bearer(c)
}

// RefreshToken reads the refresh token from its cookie, else the same
// bearer header as the access token.
func RefreshToken(c *fiber.Ctx) string {
	if v := c.Cookies(RefreshCookie); v != "" {
		return v
	}
	return bearer(c)
}

func bearer(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
