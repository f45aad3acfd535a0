package user

import (
	"errors"

	policies "armory-backend/internal/application/policies/user"
	usersvc "armory-backend/internal/application/user"
	"armory-backend/internal/interfaces/handlers/respond"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *usersvc.Service
}

// CreateUser POST /api/v1/users (admin only).
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	actor, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	var in usersvc.CreateUserInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if in.UserName == "" || in.Email == "" || in.Password == "" || in.Fullname == "" || in.Role == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.CreateUser(c.UserContext(), actor, in)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "User created successfully", fiber.Map{"user": u}, nil)
}

// ListUsers GET /api/v1/users?role=&base=
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	page := respond.Page(c)
	users, total, err := h.Service.ListUsers(c.UserContext(), usersvc.ListFilter{
		Role: c.Query("role"),
		Base: c.Query("base"),
		Page: page,
	})
	if err != nil {
		return mapError(c, err)
	}
	return response.Page(c, "Users retrieved", users, total, page.Limit, page.Offset)
}

// ViewUser GET /api/v1/users/:id
func (h *Handlers) ViewUser(c *fiber.Ctx) error {
	u, err := h.Service.ViewUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "User found", fiber.Map{"user": u}, nil)
}

// UpdateRole PATCH /api/v1/users/:id/role with {role, assigned_base}.
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	actor, ok := respond.Principal(c)
	if !ok {
		return nil
	}
	var in usersvc.UpdateUserRoleInput
	if err := c.BodyParser(&in); err != nil || in.Role == "" {
		return response.Error(c, "role is required", fiber.StatusBadRequest, nil)
	}
	in.TargetUserID = c.Params("id")
	u, err := h.Service.UpdateUserRole(c.UserContext(), actor, in)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "User role updated successfully", fiber.Map{"user": u}, nil)
}

func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, policies.ErrOnlyAdminsCanManageUsers):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, usersvc.ErrUserNotFound), errors.Is(err, policies.ErrTargetUserNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, usersvc.ErrEmailTaken), errors.Is(err, usersvc.ErrUserNameTaken),
		errors.Is(err, policies.ErrMustHaveAtLeastOneAdmin):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, usersvc.ErrInvalidEmail), errors.Is(err, usersvc.ErrInvalidPassword),
		errors.Is(err, usersvc.ErrInvalidFullname), errors.Is(err, usersvc.ErrUserNameMissing),
		errors.Is(err, policies.ErrInvalidRole), errors.Is(err, policies.ErrAssignedBaseRequired),
		errors.Is(err, policies.ErrUsersCannotModifyTheirOwnRole):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return respond.Error(c, err)
}
