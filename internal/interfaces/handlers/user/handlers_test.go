package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"armory-backend/internal/application/policies/access"
	usersvc "armory-backend/internal/application/user"
	"armory-backend/internal/constants"
	"armory-backend/internal/domain"
	"armory-backend/internal/middleware"
	"armory-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*Handlers, *gorm.DB) {
	db := testutil.DB(t)
	rdb, _ := testutil.Redis(t)
	return &Handlers{Service: &usersvc.Service{DB: db, Rdb: rdb}}, db
}

// newApp mounts the routes behind a fake login of p.
func newApp(h *Handlers, p access.Principal) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if p.UserID != "" {
			c.Locals("user", map[string]interface{}{
				"user_id": p.UserID, "role": p.Role, "assigned_base": p.AssignedBase,
			})
		}
		return c.Next()
	})
	app.Use(middleware.RequireAuth())
	app.Post("/users", middleware.AuthorizePermission(constants.ManageUsers), h.CreateUser)
	app.Patch("/users/:id/role", middleware.AuthorizePermission(constants.ManageUsers), h.UpdateRole)
	return app
}

func send(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCreateUser_RequiresAuth(t *testing.T) {
	h, _ := setupUserTest(t)
	resp := send(t, newApp(h, access.Principal{}), "POST", "/users", map[string]string{"user_name": "u1"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateUser_ForbiddenForCommander(t *testing.T) {
	h, _ := setupUserTest(t)
	app := newApp(h, access.Principal{UserID: "c1", Role: constants.BaseCommander, AssignedBase: "Fort Alpha"})
	resp := send(t, app, "POST", "/users", map[string]interface{}{
		"user_name": "lo1", "email": "lo1@x.com", "password": "Pass1!word", "fullname": "Lo One",
		"role": constants.LogisticsOfficer, "assigned_base": "Fort Alpha",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCreateUser_AdminCreatesScopedOfficer(t *testing.T) {
	h, db := setupUserTest(t)
	app := newApp(h, access.Principal{UserID: "a1", Role: constants.Admin})
	resp := send(t, app, "POST", "/users", map[string]interface{}{
		"user_name": "lo1", "email": "LO1@x.com", "password": "Pass1!word", "fullname": "lo one",
		"role": constants.LogisticsOfficer, "assigned_base": "Fort Alpha",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var u domain.User
	require.NoError(t, db.Where("user_name = ?", "lo1").First(&u).Error)
	assert.Equal(t, "lo1@x.com", u.Email)
	assert.Equal(t, "Lo One", u.Fullname)
	assert.Equal(t, "Fort Alpha", u.Base())

	resp = send(t, app, "POST", "/users", map[string]interface{}{
		"user_name": "lo2", "email": "lo1@x.com", "password": "Pass1!word", "fullname": "Lo Two",
		"role": constants.LogisticsOfficer, "assigned_base": "Fort Alpha",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreateUser_ScopedRoleNeedsBase(t *testing.T) {
	h, _ := setupUserTest(t)
	app := newApp(h, access.Principal{UserID: "a1", Role: constants.Admin})
	resp := send(t, app, "POST", "/users", map[string]interface{}{
		"user_name": "bc1", "email": "bc1@x.com", "password": "Pass1!word", "fullname": "Bc One",
		"role": constants.BaseCommander,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpdateRole_SelfRoleChangeRejected(t *testing.T) {
	h, db := setupUserTest(t)
	admin := &domain.User{UserName: "a", Email: "a@x.com", PasswordHash: "x", Fullname: "A", Role: constants.Admin}
	require.NoError(t, db.Create(admin).Error)

	app := newApp(h, access.Principal{UserID: admin.UserID.String(), Role: constants.Admin})
	resp := send(t, app, "PATCH", "/users/"+admin.UserID.String()+"/role", map[string]interface{}{
		"role": constants.BaseCommander, "assigned_base": "Fort Alpha",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpdateRole_MovesOfficerToAnotherBase(t *testing.T) {
	h, db := setupUserTest(t)
	base := "Fort Alpha"
	officer := &domain.User{UserName: "o", Email: "o@x.com", PasswordHash: "x", Fullname: "O",
		Role: constants.LogisticsOfficer, AssignedBase: &base}
	require.NoError(t, db.Create(officer).Error)

	app := newApp(h, access.Principal{UserID: "a1", Role: constants.Admin})
	resp := send(t, app, "PATCH", "/users/"+officer.UserID.String()+"/role", map[string]interface{}{
		"role": constants.BaseCommander, "assigned_base": "Fort Bravo",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got domain.User
	require.NoError(t, db.First(&got, "user_id = ?", officer.UserID).Error)
	assert.Equal(t, constants.BaseCommander, got.Role)
	assert.Equal(t, "Fort Bravo", got.Base())
}
