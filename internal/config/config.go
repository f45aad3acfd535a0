package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	AutoMigrate         bool
	JWTSecret           string
	JWTIssuer           string
	JWTExpiryMinutes    int
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	ServiceName         string
	OTLPEndpoint        string // empty disables export
}

// Load loads config from env and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("JWT_ISSUER", "armory-backend")
	v.SetDefault("JWT_EXPIRY_MINUTES", 60)
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("SERVICE_NAME", "armory-backend")

	env := v.GetString("APP_ENV")
	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		// Per-environment URLs are still honoured when the single key is unset.
		dbURL = v.GetString("DATABASE_URL_" + strings.ToUpper(envSuffix(env)))
	}

	cfg := &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		AutoMigrate:         v.GetBool("AUTO_MIGRATE"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTIssuer:           v.GetString("JWT_ISSUER"),
		JWTExpiryMinutes:    v.GetInt("JWT_EXPIRY_MINUTES"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   v.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		ServiceName:         v.GetString("SERVICE_NAME"),
		OTLPEndpoint:        v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if cfg.Env == "production" && cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required in production")
	}
	return cfg, nil
}

func envSuffix(env string) string {
	switch env {
	case "production":
		return "prod"
	case "test":
		return "test"
	default:
		return "dev"
	}
}
