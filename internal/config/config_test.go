package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GHOST_MCP_LISTEN_ADDR", "")
	t.Setenv("GHOST_MCP_LOG_LEVEL", "")
	t.Setenv("GHOST_MCP_TRANSPORT", "")
	t.Setenv("GHOST_MCP_BACKEND_URL", "")
	t.Setenv("GHOST_MCP_ALLOWED_USERS", "")
	t.Setenv("GHOST_MCP_ADMIN_API_KEY", "")
	t.Setenv("GHOST_MCP_API_URL", "")
	t.Setenv("GHOST_MCP_FAST_TIMEOUT_SECONDS", "")
	t.Setenv("GHOST_MCP_SLOW_TIMEOUT_SECONDS", "")
	t.Setenv("GHOST_MCP_SESSION_TOKEN", "")
	t.Setenv("GHOST_SESSION_TOKEN", "")
	t.Setenv("GHOST_MCP_ALLOW_CLI_CONFIG_KEY", "")
	t.Setenv("GHOST_MCP_CLI_CONFIG_PATH", "")
	t.Setenv("GHOST_MCP_METRICS_ENABLED", "")
	t.Setenv("GHOST_MCP_DEV_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, defaultListenAddr, cfg.ListenAddr)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, TransportStdio, cfg.Transport)
	require.Equal(t, defaultBackendURL, cfg.BackendURL)
	require.Empty(t, cfg.AllowedUsers)
	require.Equal(t, 30*time.Second, cfg.FastTimeout)
	require.Equal(t, 300*time.Second, cfg.SlowTimeout)
	require.False(t, cfg.AllowCLIConfigKey)
	require.False(t, cfg.OAuth.Enabled())
	require.True(t, cfg.MetricsEnabled)
	require.False(t, cfg.DevMode)
}

func TestLoad_InvalidTransport(t *testing.T) {
	t.Setenv("GHOST_MCP_TRANSPORT", "udp")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid GHOST_MCP_TRANSPORT")
}

func TestLoad_AllowedUsersAreTrimmed(t *testing.T) {
	t.Setenv("GHOST_MCP_TRANSPORT", "")
	t.Setenv("GHOST_MCP_BACKEND_URL", "")
	t.Setenv("GHOST_MCP_ALLOWED_USERS", " alice, bob ,,carol ")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "carol"}, cfg.AllowedUsers)
}

func TestLoad_TimeoutsFromSeconds(t *testing.T) {
	t.Setenv("GHOST_MCP_TRANSPORT", "")
	t.Setenv("GHOST_MCP_BACKEND_URL", "")
	t.Setenv("GHOST_MCP_FAST_TIMEOUT_SECONDS", "10")
	t.Setenv("GHOST_MCP_SLOW_TIMEOUT_SECONDS", "120")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.FastTimeout)
	require.Equal(t, 120*time.Second, cfg.SlowTimeout)
}

func TestLoad_SessionTokenFallsBackToSharedVar(t *testing.T) {
	t.Setenv("GHOST_MCP_TRANSPORT", "")
	t.Setenv("GHOST_MCP_BACKEND_URL", "")
	t.Setenv("GHOST_MCP_SESSION_TOKEN", "")
	t.Setenv("GHOST_SESSION_TOKEN", "shared-token")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "shared-token", cfg.SessionToken)
}

func TestLoad_OAuthEnabledNeedsCoreSettings(t *testing.T) {
	t.Setenv("GHOST_MCP_TRANSPORT", "")
	t.Setenv("GHOST_MCP_BACKEND_URL", "")
	t.Setenv("GHOST_MCP_OAUTH_CLIENT_ID", "client-1")
	t.Setenv("GHOST_MCP_OAUTH_AUTH_URL", "https://idp.example.com/authorize")
	t.Setenv("GHOST_MCP_OAUTH_TOKEN_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.OAuth.Enabled())

	t.Setenv("GHOST_MCP_OAUTH_TOKEN_URL", "https://idp.example.com/token")
	cfg, err = Load()
	require.NoError(t, err)
	require.True(t, cfg.OAuth.Enabled())
}
