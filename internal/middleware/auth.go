package middleware

import (
	"armory-backend/internal/application/policies/access"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	userLocal      = "user"
	principalLocal = "principal"
)

// RequireAuth rejects requests without a session or bearer user and caches
// the resolved Principal for handlers.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := principalFromUser(c.Locals(userLocal))
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(principalLocal, p)
		return c.Next()
	}
}

// GetUser returns the raw user map from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetPrincipal returns the authenticated caller.
func GetPrincipal(c *fiber.Ctx) (access.Principal, bool) {
	if p, ok := c.Locals(principalLocal).(access.Principal); ok {
		return p, true
	}
	return principalFromUser(c.Locals(userLocal))
}

func principalFromUser(user interface{}) (access.Principal, bool) {
	m, ok := user.(map[string]interface{})
	if !ok {
		return access.Principal{}, false
	}
	id, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	if id == "" || role == "" {
		return access.Principal{}, false
	}
	base, _ := m["assigned_base"].(string)
	return access.Principal{UserID: id, Role: role, AssignedBase: base}, true
}
