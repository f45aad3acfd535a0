package transfers

import (
	transfersvc "armory-backend/internal/application/transfers"
	"armory-backend/internal/interfaces/handlers/respond"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *transfersvc.Service
}

// Create POST /api/v1/transfers
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	var in transfersvc.CreateInput
	if err := respond.Body(c, &in); err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Create(c.UserContext(), p, in)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.SuccessCreated(c, "Transfer created", res, nil)
}

// Approve POST /api/v1/transfers/:id/approve
func (h *Handlers) Approve(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Approve(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Transfer approved", res, nil)
}

// Cancel POST /api/v1/transfers/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Cancel(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Transfer cancelled", res, nil)
}

// Recover POST /api/v1/transfers/recover
func (h *Handlers) Recover(c *fiber.Ctx) error {
	res, err := h.Service.Recover(c.UserContext())
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Recovery sweep finished", res, nil)
}

// Get GET /api/v1/transfers/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	t, err := h.Service.Get(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Transfer retrieved", t, nil)
}

// List GET /api/v1/transfers?base=&status=&asset_type=&from=&to=
func (h *Handlers) List(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	from, to, err := respond.Range(c)
	if err != nil {
		return respond.Error(c, err)
	}
	page := respond.Page(c)
	items, total, err := h.Service.List(c.UserContext(), p, transfersvc.ListFilter{
		Base:      c.Query("base"),
		Status:    c.Query("status"),
		AssetType: c.Query("asset_type"),
		From:      from,
		To:        to,
		Page:      page,
	})
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Page(c, "Transfers retrieved", items, total, page.Limit, page.Offset)
}
