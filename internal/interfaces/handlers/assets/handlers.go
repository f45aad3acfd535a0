package assets

import (
	assetsvc "armory-backend/internal/application/assets"
	"armory-backend/internal/interfaces/handlers/respond"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *assetsvc.Service
}

// Create POST /api/v1/assets
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	var in assetsvc.CreateInput
	if err := respond.Body(c, &in); err != nil {
		return respond.Error(c, err)
	}
	asset, err := h.Service.Create(c.UserContext(), p, in)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.SuccessCreated(c, "Asset created", asset, nil)
}

// List GET /api/v1/assets?base=&type=&name=&limit=&offset=
func (h *Handlers) List(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	page := respond.Page(c)
	items, total, err := h.Service.List(c.UserContext(), p, assetsvc.ListFilter{
		Base: c.Query("base"),
		Type: c.Query("type"),
		Name: c.Query("name"),
		Page: page,
	})
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Page(c, "Assets retrieved", items, total, page.Limit, page.Offset)
}

// Get GET /api/v1/assets/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	asset, err := h.Service.Get(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Asset retrieved", asset, nil)
}

// Summary GET /api/v1/assets/summary?base=&type=&group=type
func (h *Handlers) Summary(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	rows, err := h.Service.Summary(c.UserContext(), p, assetsvc.SummaryFilter{
		Base:   c.Query("base"),
		Type:   c.Query("type"),
		ByType: c.Query("group") == "type",
	})
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Summary retrieved", rows, nil)
}

type openingRequest struct {
	OpeningBalance *int64 `json:"opening_balance"`
}

// UpdateOpening PATCH /api/v1/assets/:id/opening-balance
func (h *Handlers) UpdateOpening(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var req openingRequest
	if err := respond.Body(c, &req); err != nil {
		return respond.Error(c, err)
	}
	if req.OpeningBalance == nil {
		return response.Error(c, "opening_balance is required", fiber.StatusBadRequest, nil)
	}
	asset, err := h.Service.UpdateOpening(c.UserContext(), p, id, *req.OpeningBalance)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Opening balance updated", asset, nil)
}

// Delete DELETE /api/v1/assets/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), p, id); err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Asset deleted", fiber.Map{"asset_id": id}, nil)
}
