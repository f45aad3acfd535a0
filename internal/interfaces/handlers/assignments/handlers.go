package assignments

import (
	assignmentsvc "armory-backend/internal/application/assignments"
	"armory-backend/internal/interfaces/handlers/respond"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *assignmentsvc.Service
}

// Create POST /api/v1/assignments
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	var in assignmentsvc.CreateInput
	if err := respond.Body(c, &in); err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Create(c.UserContext(), p, in)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.SuccessCreated(c, "Asset assigned", res, nil)
}

type returnRequest struct {
	Quantity int64 `json:"quantity"`
}

// Return POST /api/v1/assignments/:id/return
func (h *Handlers) Return(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var req returnRequest
	if err := respond.Body(c, &req); err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.Return(c.UserContext(), p, id, req.Quantity)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Assignment returned", res, nil)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus PATCH /api/v1/assignments/:id/status
func (h *Handlers) SetStatus(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var req statusRequest
	if err := respond.Body(c, &req); err != nil {
		return respond.Error(c, err)
	}
	res, err := h.Service.SetStatus(c.UserContext(), p, id, req.Status)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Assignment status updated", res, nil)
}

// Get GET /api/v1/assignments/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	a, err := h.Service.Get(c.UserContext(), p, id)
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Success(c, "Assignment retrieved", a, nil)
}

// List GET /api/v1/assignments?base=&status=&asset_id=&assignee=&from=&to=
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
	items, total, err := h.Service.List(c.UserContext(), p, assignmentsvc.ListFilter{
		Base:     c.Query("base"),
		Status:   c.Query("status"),
		AssetID:  assetID,
		Assignee: c.Query("assignee"),
		From:     from,
		To:       to,
		Page:     page,
	})
	if err != nil {
		return respond.Error(c, err)
	}
	return response.Page(c, "Assignments retrieved", items, total, page.Limit, page.Offset)
}
