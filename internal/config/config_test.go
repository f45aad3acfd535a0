package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_URL_DEV", "postgres://dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres://dev", cfg.DatabaseURL)
	assert.Equal(t, 60, cfg.JWTExpiryMinutes)
	assert.True(t, cfg.AutoMigrate)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_ProductionNeedsSessionSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://explicit")
	t.Setenv("ALLOW_CROSS_SITE_DEV", "true")
	t.Setenv("JWT_EXPIRY_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://explicit", cfg.DatabaseURL)
	assert.True(t, cfg.AllowCrossSiteDev)
	assert.Equal(t, 15, cfg.JWTExpiryMinutes)
}
