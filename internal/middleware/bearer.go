package middleware

import (
	"strings"

	"armory-backend/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// BearerAuth accepts "Authorization: Bearer <jwt>" for callers without a
// session cookie. A session user always takes precedence; an invalid token
// leaves the request anonymous.
func BearerAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals(userLocal) != nil || secret == "" {
			return c.Next()
		}
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Next()
		}
		claims, err := jwt.Parse(secret, strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			log.Debug().Err(err).Str("trace_id", GetTraceID(c)).Msg("bearer token rejected")
			return c.Next()
		}
		c.Locals(userLocal, map[string]interface{}{
			"user_id":       claims.UserID,
			"role":          claims.Role,
			"assigned_base": claims.AssignedBase,
		})
		return c.Next()
	}
}
