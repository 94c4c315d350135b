package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "lumenpulse.io", cfg.Auth.HomeDomain)
	assert.Equal(t, "https://horizon-testnet.stellar.org", cfg.Horizon.URL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LUMENPULSE_SERVER_PORT", "8080")
	t.Setenv("LUMENPULSE_AUTH_HOME_DOMAIN", "auth.example.com")
	t.Setenv("LUMENPULSE_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "auth.example.com", cfg.Auth.HomeDomain)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
