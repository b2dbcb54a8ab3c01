package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "chat")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("TOKEN_TTL", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "super-secret", cfg.JWTSecret)
	assert.Equal(t, ":8080", cfg.Addr, "default should apply")
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Contains(t, cfg.DSN(), "host=db.internal")
	assert.Contains(t, cfg.DSN(), "dbname=chat")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "placeholder") // registers the restore
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	assert.Error(t, err)
}
