package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// sameSite is None for cross-site clients when cookies are secure; browsers
// drop SameSite=None cookies without Secure, so insecure dev setups use Lax.
func (cc CookieConfig) sameSite() string {
	if cc.Secure {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteLaxMode
}

func (cc CookieConfig) cookie(name, value string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cc.MaxAge.Seconds()),
		Secure:   cc.Secure,
		HTTPOnly: true,
		SameSite: cc.sameSite(),
	}
}

func setTokenCookies(c *fiber.Ctx, cc CookieConfig, pair *services.TokenPair) {
	c.Cookie(cc.cookie(middleware.AccessCookie, pair.AccessToken))
	c.Cookie(cc.cookie(middleware.RefreshCookie, pair.RefreshToken))
}

func clearTokenCookies(c *fiber.Ctx, cc CookieConfig) {
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		ck := cc.cookie(name, "")
		ck.MaxAge = 0
		ck.Expires = time.Unix(0, 0)
		c.Cookie(ck)
	}
}
