// Package auth resolves gateway credentials and caller identity for MCP
// sessions.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeySource identifies where the service API key was resolved from.
type KeySource string

const (
	// KeySourceMCPEnv is GHOST_MCP_SERVICE_API_KEY.
	KeySourceMCPEnv KeySource = "ghost_mcp_service_api_key"
	// KeySourceSharedEnv is GHOST_SERVICE_API_KEY.
	KeySourceSharedEnv KeySource = "ghost_service_api_key"
	// KeySourceCLIConfig is ~/.ghost-mcp/config.yaml auth.service_api_key.
	KeySourceCLIConfig KeySource = "cli_config"
)

// KeyResolution contains the resolved service key and its source.
type KeyResolution struct {
	Key    string
	Source KeySource
}

// KeySourceOptions controls service key resolution.
type KeySourceOptions struct {
	AllowCLIConfigKey bool
	CLIConfigPath     string
}

type cliConfigFile struct {
	Auth struct {
		ServiceAPIKey string `yaml:"service_api_key"`
	} `yaml:"auth"`
}

// ResolveServiceKey resolves the service API key using deterministic
// precedence:
// 1) GHOST_MCP_SERVICE_API_KEY
// 2) GHOST_SERVICE_API_KEY
// 3) CLI config auth.service_api_key (only when AllowCLIConfigKey=true)
func ResolveServiceKey(opts KeySourceOptions) (KeyResolution, error) {
	if key := strings.TrimSpace(os.Getenv("GHOST_MCP_SERVICE_API_KEY")); key != "" {
		return KeyResolution{Key: key, Source: KeySourceMCPEnv}, nil
	}

	if key := strings.TrimSpace(os.Getenv("GHOST_SERVICE_API_KEY")); key != "" {
		return KeyResolution{Key: key, Source: KeySourceSharedEnv}, nil
	}

	if !opts.AllowCLIConfigKey {
		return KeyResolution{}, nil
	}

	configPath := expandPath(defaultIfEmpty(strings.TrimSpace(opts.CLIConfigPath), "~/.ghost-mcp/config.yaml"))
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		return KeyResolution{}, nil
	default:
		return KeyResolution{}, fmt.Errorf("reading CLI config key source: %w", err)
	}

	var cfg cliConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return KeyResolution{}, fmt.Errorf("decoding CLI config key source: %w", err)
	}

	key := strings.TrimSpace(cfg.Auth.ServiceAPIKey)
	if key == "" {
		return KeyResolution{}, nil
	}
	return KeyResolution{Key: key, Source: KeySourceCLIConfig}, nil
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return filepath.Clean(path)
}
