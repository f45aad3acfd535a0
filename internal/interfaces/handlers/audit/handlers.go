package audit

import (
	auditsvc "armory-backend/internal/application/audit"
	"armory-backend/internal/interfaces/handlers/respond"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *auditsvc.Service
}

// Logs GET /api/v1/audit/logs?user_id=&resource_type=&resource_id=
func (h *Handlers) Logs(c *fiber.Ctx) error {
	page := respond.Page(c)
	items, total, err := h.Service.List(c.UserContext(), auditsvc.ListFilter{
		UserID:       c.Query("user_id"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Page(c, "Activity logs retrieved", items, total, page.Limit, page.Offset)
}

// Recent GET /api/v1/audit/recent?n=
func (h *Handlers) Recent(c *fiber.Ctx) error {
	entries, err := h.Service.Recent(c.UserContext(), c.QueryInt("n", 50))
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Recent activity retrieved", entries, nil)
}
