package expenditures

import (
	expendituresvc "armory-backend/internal/application/expenditures"
	"armory-backend/internal/interfaces/handlers/respond"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *expendituresvc.Service
}

// Create POST /api/v1/expenditures
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	var in expendituresvc.CreateInput
	if err := respond.Body(c, &in); err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Create(c.UserContext(), p, in)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.SuccessCreated(c, "Expenditure recorded", res, nil)
}

// Delete DELETE /api/v1/expenditures/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Delete(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Expenditure deleted", res, nil)
}

// Get GET /api/v1/expenditures/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	e, err := h.Service.Get(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Expenditure retrieved", e, nil)
}

// List GET /api/v1/expenditures?base=&asset_id=&from=&to=
func (h *Handlers) List(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	from, to, err := respond.Range(c)
	if err != nil {
		return respond.Error(c, err)
	}
	assetID, err := respond.OptionalID(c, "asset_id")
	if err != nil {
		return respond.Error(c, err)
	}
	page := respond.Page(c)
	items, total, err := h.Service.List(c.UserContext(), p, expendituresvc.ListFilter{
		Base:    c.Query("base"),
		AssetID: assetID,
		From:    from,
		To:      to,
		Page:    page,
	})
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Page(c, "Expenditures retrieved", items, total, page.Limit, page.Offset)
}
