package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "ENABLE_LOCAL_AUTH", "ENABLE_JWKS", "CONTENT_CACHE_TTL", "DEFAULT_LANGUAGE"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.True(t, cfg.EnableLocalAuth)
	assert.False(t, cfg.EnableJWKS)
	assert.Equal(t, 10*time.Minute, cfg.ContentCacheTTL)
	assert.Equal(t, "FR", cfg.DefaultLanguage)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins())
}

func TestFromEnvOnline(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("ENABLE_LOCAL_AUTH", "")
	t.Setenv("ENABLE_JWKS", "")
	t.Setenv("CONTENT_CACHE_TTL", "30")
	t.Setenv("DEFAULT_LANGUAGE", "de")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	cfg := FromEnv()

	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.False(t, cfg.EnableLocalAuth)
	assert.True(t, cfg.EnableJWKS)
	assert.Equal(t, 30*time.Second, cfg.ContentCacheTTL)
	assert.Equal(t, "DE", cfg.DefaultLanguage)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}
