// Package creds resolves which Ghost credentials accompany an outbound backend call.
package creds

import "strings"

// Argument names carrying per-call credential overrides.
const (
	ArgAdminAPIKey = "ghost_admin_api_key"
	ArgAPIURL      = "ghost_api_url"
)

// Override carries per-call credential fields supplied as tool arguments.
// Either field may be set on its own; the pair is never required together.
type Override struct {
	AdminAPIKey string
	APIURL      string
}

// Environment carries process-wide credential defaults read once at startup.
type Environment struct {
	AdminAPIKey string
	APIURL      string
}

// Set is the effective credential set attached to one outbound request.
// An empty AdminAPIKey or APIURL means the backend applies its own default
// for that field.
type Set struct {
	ServiceKey  string
	AdminAPIKey string
	APIURL      string
}

// Resolve picks effective credentials with first-match-wins precedence per
// field: call override, then environment, then backend default (omitted).
// The two fields resolve independently; a call may override only one of them.
// The service key is always carried regardless of override state.
func Resolve(override Override, env Environment, serviceKey string) Set {
	return Set{
		ServiceKey:  strings.TrimSpace(serviceKey),
		AdminAPIKey: firstNonEmpty(override.AdminAPIKey, env.AdminAPIKey),
		APIURL:      firstNonEmpty(override.APIURL, env.APIURL),
	}
}

// ExtractOverride pulls credential override arguments out of validated tool
// arguments. Override values travel only as request headers; the returned
// argument map no longer contains them, so they are never duplicated in the
// forwarded body or query string.
func ExtractOverride(args map[string]any) (Override, map[string]any) {
	if args == nil {
		return Override{}, map[string]any{}
	}

	override := Override{}
	cleaned := make(map[string]any, len(args))
	for key, value := range args {
		switch key {
		case ArgAdminAPIKey:
			if s, ok := value.(string); ok {
				override.AdminAPIKey = strings.TrimSpace(s)
			}
		case ArgAPIURL:
			if s, ok := value.(string); ok {
				override.APIURL = strings.TrimSpace(s)
			}
		default:
			cleaned[key] = value
		}
	}
	return override, cleaned
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
