package middleware

import (
	"strings"

	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig lists which browser origins may call the API with credentials.
type CORSConfig struct {
	// AllowedSuffixes match the end of the Origin host, e.g. ".armory.mil".
	AllowedSuffixes []string
	// DevPassword lets an unlisted origin through when sent as the dev-password header.
	DevPassword string
	// AllowLocalhost admits http://localhost and http://127.0.0.1 origins.
	AllowLocalhost bool
}

const (
	corsAllowHeaders = "Content-Type, Authorization, dev-password"
	corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
)

// CORS admits same-origin and tool requests (no Origin header) unconditionally
// and answers preflights for admitted origins itself.
func CORS(cfg CORSConfig) fiber.Handler {
	suffixes := make([]string, 0, len(cfg.AllowedSuffixes))
	for _, s := range cfg.AllowedSuffixes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			suffixes = append(suffixes, s)
		}
	}
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		if !originAllowed(c, cfg, suffixes, origin) {
			return response.Forbidden(c, "Origin not allowed")
		}
		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
		c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
		c.Vary(fiber.HeaderOrigin)
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func originAllowed(c *fiber.Ctx, cfg CORSConfig, suffixes []string, origin string) bool {
	lower := strings.ToLower(origin)
	if cfg.AllowLocalhost && (strings.HasPrefix(lower, "http://localhost:") || strings.HasPrefix(lower, "http://127.0.0.1:")) {
		return true
	}
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword
}
