package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "")
	t.Setenv("CLIENT_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.False(t, cfg.App.IsProduction())
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:5174"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadAppendsClientURL(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")
	t.Setenv("CLIENT_URL", "https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowedOrigins)
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProduction())
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestMalformedIntsFallBack(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "lots")
	t.Setenv("STATS_CACHE_TTL_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Zero(t, cfg.Redis.StatsTTL())
}
