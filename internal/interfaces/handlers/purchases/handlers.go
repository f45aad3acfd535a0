package purchases

import (
	purchasesvc "armory-backend/internal/application/purchases"
	"armory-backend/internal/interfaces/handlers/respond"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *purchasesvc.Service
}

// Create POST /api/v1/purchases
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	var in purchasesvc.CreateInput
	if err := respond.Body(c, &in); err != nil {
		return respond.Error(c, err)
	}
	purchase, err := h.Service.Create(c.UserContext(), p, in)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.SuccessCreated(c, "Purchase ordered", purchase, nil)
}

// Deliver POST /api/v1/purchases/:id/deliver
func (h *Handlers) Deliver(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Deliver(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Purchase delivered", res, nil)
}

// Cancel POST /api/v1/purchases/:id/cancel
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
	return response.Success(c, "Purchase cancelled", res, nil)
}

// Get GET /api/v1/purchases/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	purchase, err := h.Service.Get(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Purchase retrieved", purchase, nil)
}

// List GET /api/v1/purchases?base=&status=&asset_type=&from=&to=
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
	items, total, err := h.Service.List(c.UserContext(), p, purchasesvc.ListFilter{
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
	return response.Page(c, "Purchases retrieved", items, total, page.Limit, page.Offset)
}
