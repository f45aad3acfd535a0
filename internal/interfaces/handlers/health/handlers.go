package health

import (
	healthsvc "armory-backend/internal/application/health"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service        *healthsvc.Service
	HealthAdminKey string
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.Service.Collect(c.UserContext())
	status := fiber.StatusOK
	if result.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}

// Errors GET /health/errors: the most recent 5xx responses.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries, err := h.Service.RecentErrors(c.UserContext(), int64(c.QueryInt("n", 50)))
	if err != nil {
		log.Error().Err(err).Msg("health: error log read failed")
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	return c.JSON(entries)
}

// Reset GET /health/reset?key=HEALTH_ADMIN_KEY
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if h.HealthAdminKey == "" || key != h.HealthAdminKey {
		return response.Forbidden(c, "Unauthorized")
	}
	if err := h.Service.Reset(c.UserContext()); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}
