package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("JWT_TTL_HOURS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := fromEnv()

	assert.Equal(t, "", cfg.DatabaseDriver)
	assert.Equal(t, 24, cfg.JWTTTLHours)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.R2.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("JWT_TTL_HOURS", "6")
	t.Setenv("SEARCH_FALLBACK_ALL_USERS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET_NAME", "avatars")

	cfg := fromEnv()

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 6, cfg.JWTTTLHours)
	assert.True(t, cfg.SearchFallbackAllUsers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.R2.Enabled())
	assert.Equal(t, "auto", cfg.R2.Region)
}
