package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"armory-backend/internal/constants"
	"armory-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_PersistsUserAcrossRequests(t *testing.T) {
	rdb, _ := testutil.Redis(t)
	app := fiber.New()
	app.Use(Session(rdb))
	app.Post("/login", func(c *fiber.Ctx) error {
		sid := RegenerateSessionID(c)
		base := "Alpha"
		SetSessionUser(c, SessionUser{UserID: "u-7", Email: "cmdr@armory.mil", Role: constants.BaseCommander, AssignedBase: &base})
		return c.SendString(sid)
	})
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error {
		p, _ := GetPrincipal(c)
		return c.SendString(p.UserID + "|" + p.AssignedBase)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	sid := string(raw)
	require.NotEmpty(t, sid)

	members, err := rdb.SMembers(context.Background(), UserSessionsPrefix+"u-7").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{sid}, members)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:"+sid)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "u-7|Alpha", string(raw))

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"=s:unknown")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionCookieConfig(t *testing.T) {
	c := SessionCookieConfig(SessionConfig{IsProduction: true})
	assert.True(t, c.Secure)
	assert.Equal(t, "Lax", c.SameSite)
	assert.Equal(t, "None", SessionCookieConfig(SessionConfig{AllowCrossSiteDev: true}).SameSite)
}
