// Package config loads ghost-blog-mcp configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// TransportStdio runs MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP runs MCP over HTTP with SSE tool streaming.
	TransportHTTP = "http"

	defaultListenAddr = ":27780"
	defaultBackendURL = "http://localhost:5000"
)

// OAuthSettings configures the optional OAuth authorization-code flow used to
// authenticate MCP sessions in place of a static session token.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// Enabled reports whether enough OAuth settings are present to run the flow.
func (s OAuthSettings) Enabled() bool {
	return strings.TrimSpace(s.ClientID) != "" &&
		strings.TrimSpace(s.AuthURL) != "" &&
		strings.TrimSpace(s.TokenURL) != ""
}

// Config holds service runtime configuration.
type Config struct {
	ListenAddr string
	LogLevel   string

	Transport string

	// BackendURL is the base URL of the blog CMS REST backend every tool
	// call is forwarded to.
	BackendURL string

	// AllowedUsers is the caller allow-list. Empty means public mode.
	AllowedUsers []string

	// AdminAPIKey and APIURL are the environment-level backend credentials.
	// Per-call overrides in tool arguments take precedence over them.
	AdminAPIKey string
	APIURL      string

	FastTimeout time.Duration
	SlowTimeout time.Duration

	SessionToken string

	// AllowCLIConfigKey permits reading the service API key from the CLI
	// config file when neither environment variable is set.
	AllowCLIConfigKey bool
	CLIConfigPath     string

	OAuth OAuthSettings

	MetricsEnabled bool
	DevMode        bool
}

// Load returns configuration parsed from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        envOrDefault("GHOST_MCP_LISTEN_ADDR", defaultListenAddr),
		LogLevel:          strings.ToLower(strings.TrimSpace(envOrDefault("GHOST_MCP_LOG_LEVEL", "info"))),
		Transport:         strings.ToLower(strings.TrimSpace(envOrDefault("GHOST_MCP_TRANSPORT", TransportStdio))),
		BackendURL:        strings.TrimSpace(envOrDefault("GHOST_MCP_BACKEND_URL", defaultBackendURL)),
		AllowedUsers:      splitList(os.Getenv("GHOST_MCP_ALLOWED_USERS")),
		AdminAPIKey:       strings.TrimSpace(os.Getenv("GHOST_MCP_ADMIN_API_KEY")),
		APIURL:            strings.TrimSpace(os.Getenv("GHOST_MCP_API_URL")),
		FastTimeout:       envSeconds("GHOST_MCP_FAST_TIMEOUT_SECONDS", 30*time.Second),
		SlowTimeout:       envSeconds("GHOST_MCP_SLOW_TIMEOUT_SECONDS", 300*time.Second),
		SessionToken:      strings.TrimSpace(defaultIfEmpty(os.Getenv("GHOST_MCP_SESSION_TOKEN"), os.Getenv("GHOST_SESSION_TOKEN"))),
		AllowCLIConfigKey: envBool("GHOST_MCP_ALLOW_CLI_CONFIG_KEY", false),
		CLIConfigPath:     strings.TrimSpace(os.Getenv("GHOST_MCP_CLI_CONFIG_PATH")),
		OAuth: OAuthSettings{
			ClientID:     strings.TrimSpace(os.Getenv("GHOST_MCP_OAUTH_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("GHOST_MCP_OAUTH_CLIENT_SECRET")),
			AuthURL:      strings.TrimSpace(os.Getenv("GHOST_MCP_OAUTH_AUTH_URL")),
			TokenURL:     strings.TrimSpace(os.Getenv("GHOST_MCP_OAUTH_TOKEN_URL")),
			RedirectURL:  strings.TrimSpace(os.Getenv("GHOST_MCP_OAUTH_REDIRECT_URL")),
			Scopes:       splitList(os.Getenv("GHOST_MCP_OAUTH_SCOPES")),
		},
		MetricsEnabled: envBool("GHOST_MCP_METRICS_ENABLED", true),
		DevMode:        envBool("GHOST_MCP_DEV_MODE", false),
	}

	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return Config{}, fmt.Errorf("invalid GHOST_MCP_TRANSPORT %q (allowed: %s|%s)", cfg.Transport, TransportStdio, TransportHTTP)
	}

	if strings.TrimSpace(cfg.BackendURL) == "" {
		return Config{}, fmt.Errorf("GHOST_MCP_BACKEND_URL must not be empty")
	}
	if cfg.FastTimeout <= 0 {
		return Config{}, fmt.Errorf("GHOST_MCP_FAST_TIMEOUT_SECONDS must be positive")
	}
	if cfg.SlowTimeout <= 0 {
		return Config{}, fmt.Errorf("GHOST_MCP_SLOW_TIMEOUT_SECONDS must be positive")
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return parsed
}

func envSeconds(key string, defaultVal time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultVal
	}
	return time.Duration(seconds) * time.Second
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
