package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "rebound", cfg.Auth.JWT.Issuer)
	require.Equal(t, 24*time.Hour, cfg.Auth.JWT.TTL)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.True(t, cfg.RateLimit.Enabled)
	require.Equal(t, 100, cfg.RateLimit.MaxRequests)
	require.Equal(t, 90, cfg.Maintenance.NotificationRetentionDays)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("REBOUND_SERVER_PORT", "9001")
	t.Setenv("REBOUND_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("REBOUND_DATABASE_DRIVER", "postgres")
	t.Setenv("REBOUND_CACHE_REDIS_ENABLED", "true")
	t.Setenv("REBOUND_RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}
