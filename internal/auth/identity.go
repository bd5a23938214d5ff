package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated principal on whose behalf tool calls run.
// It is created once per session by the identity provider exchange and is
// immutable afterwards.
type Identity struct {
	// Handle is the stable user handle used for allowlist matching.
	Handle string
	// DisplayName is a human-readable name for logs and responses.
	DisplayName string
}

type identityClaims struct {
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Login             string `json:"login,omitempty"`
	jwt.RegisteredClaims
}

// IdentityFromToken derives a caller identity from an OAuth access token.
//
// Signature verification is the identity provider's concern; the provider
// already validated the token during the authorization-code exchange, so the
// claims are parsed without re-verification here. Opaque tokens yield no
// identity.
func IdentityFromToken(token string) (Identity, bool) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Identity{}, false
	}

	parser := jwt.NewParser()
	claims := &identityClaims{}
	if _, _, err := parser.ParseUnverified(trimmed, claims); err != nil {
		return Identity{}, false
	}

	handle := strings.TrimSpace(claims.PreferredUsername)
	if handle == "" {
		handle = strings.TrimSpace(claims.Login)
	}
	if handle == "" {
		handle = strings.TrimSpace(claims.Subject)
	}
	if handle == "" {
		return Identity{}, false
	}

	displayName := strings.TrimSpace(claims.Name)
	if displayName == "" {
		displayName = handle
	}

	return Identity{
		Handle:      handle,
		DisplayName: displayName,
	}, true
}
