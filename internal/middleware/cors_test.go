package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsApp(cfg CORSConfig) *fiber.App {
	app := fiber.New()
	app.Use(CORS(cfg))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestCORS(t *testing.T) {
	app := corsApp(CORSConfig{AllowedSuffixes: []string{" .Armory.mil ", ""}, DevPassword: "letmein"})

	tests := []struct {
		name     string
		method   string
		origin   string
		devPass  string
		wantCode int
		wantACAO bool
	}{
		{"no origin", "GET", "", "", fiber.StatusOK, false},
		{"suffix match", "GET", "https://ops.armory.mil", "", fiber.StatusOK, true},
		{"preflight", "OPTIONS", "https://ops.armory.mil", "", fiber.StatusNoContent, true},
		{"unknown origin", "GET", "https://evil.example", "", fiber.StatusForbidden, false},
		{"dev password", "GET", "https://evil.example", "letmein", fiber.StatusOK, true},
		{"localhost disabled", "GET", "http://localhost:3000", "", fiber.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/x", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.devPass != "" {
				req.Header.Set("dev-password", tt.devPass)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantACAO, resp.Header.Get("Access-Control-Allow-Origin") != "")
		})
	}
}

func TestCORS_Localhost(t *testing.T) {
	app := corsApp(CORSConfig{AllowLocalhost: true})
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
