package health

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	healthsvc "armory-backend/internal/application/health"
	"armory-backend/internal/middleware"
	"armory-backend/internal/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHealthApp(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
	rdb, mr := testutil.Redis(t)
	h := &Handlers{
		Service:        &healthsvc.Service{Rdb: rdb, DB: testutil.DB(t)},
		HealthAdminKey: "test-admin-key",
	}
	app := fiber.New()
	app.Use(middleware.HealthMarker(rdb))
	app.Get("/health/json", h.JSON)
	app.Get("/health/errors", h.Errors)
	app.Get("/health/reset", h.Reset)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).SendString("boom")
	})
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app, mr
}

func TestReset_Unauthorized(t *testing.T) {
	app, _ := setupHealthApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health/reset?key=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHealthMarker_CountsTrafficAndLogsServerErrors(t *testing.T) {
	app, mr := setupHealthApp(t)

	for _, path := range []string{"/ok", "/ok", "/boom"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	var out healthsvc.CollectResult
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, 3, out.Traffic.TotalRequests)
	assert.Equal(t, 1, out.Traffic.FailedCount)

	resp, err = app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "/boom", errs[0]["path"])

	resp, err = app.Test(httptest.NewRequest("GET", "/health/reset?key=test-admin-key", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, mr.Exists(middleware.KeyReqTotal))
	n, _ := mr.List(middleware.KeyErrorLog)
	assert.Empty(t, n)
}
