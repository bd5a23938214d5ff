package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/preangelleo/ghost-blog-management-mcp/internal/auth"
)

var (
	// ErrSessionTokenMissing indicates no MCP session token was configured.
	ErrSessionTokenMissing = errors.New("mcp session token is not configured")
	// ErrBearerTokenMissing indicates Authorization header did not contain a bearer token.
	ErrBearerTokenMissing = errors.New("missing or malformed Authorization bearer token")
	// ErrBearerTokenInvalid indicates provided bearer token was rejected for this session.
	ErrBearerTokenInvalid = errors.New("invalid bearer token for MCP session")
)

// SessionPrincipal carries the caller identity used for allow-list checks.
type SessionPrincipal struct {
	Handle      string
	DisplayName string
}

// SessionAuthenticator authenticates HTTP and stdio MCP calls.
type SessionAuthenticator interface {
	AuthenticateHTTP(r *http.Request) (SessionPrincipal, error)
	AuthenticateStdio() (SessionPrincipal, error)
}

// TokenSessionAuthenticator validates incoming bearer tokens against a single
// configured MCP session token.
type TokenSessionAuthenticator struct {
	token     string
	principal SessionPrincipal
}

// NewTokenSessionAuthenticator creates a static-token session authenticator.
// JWT-shaped tokens contribute their identity claims to the principal; opaque
// tokens fall back to a generic session handle.
func NewTokenSessionAuthenticator(token string) *TokenSessionAuthenticator {
	trimmed := strings.TrimSpace(token)
	return &TokenSessionAuthenticator{
		token:     trimmed,
		principal: principalFromToken(trimmed),
	}
}

// AuthenticateHTTP validates the Authorization bearer token.
func (a *TokenSessionAuthenticator) AuthenticateHTTP(r *http.Request) (SessionPrincipal, error) {
	if strings.TrimSpace(a.token) == "" {
		return SessionPrincipal{}, fmt.Errorf("%w; set GHOST_MCP_SESSION_TOKEN or GHOST_SESSION_TOKEN", ErrSessionTokenMissing)
	}
	presented := parseBearerToken(r.Header.Get("Authorization"))
	if presented == "" {
		return SessionPrincipal{}, ErrBearerTokenMissing
	}
	if presented != a.token {
		return SessionPrincipal{}, ErrBearerTokenInvalid
	}
	return a.principal, nil
}

// AuthenticateStdio validates configured stdio session token presence.
func (a *TokenSessionAuthenticator) AuthenticateStdio() (SessionPrincipal, error) {
	if strings.TrimSpace(a.token) == "" {
		return SessionPrincipal{}, fmt.Errorf("%w; set GHOST_MCP_SESSION_TOKEN or GHOST_SESSION_TOKEN", ErrSessionTokenMissing)
	}
	return a.principal, nil
}

// OAuthSessionAuthenticator accepts OAuth access tokens obtained through the
// authorization-code flow and derives the caller handle from their claims.
type OAuthSessionAuthenticator struct{}

// NewOAuthSessionAuthenticator creates a bearer-token session authenticator
// for OAuth-issued access tokens.
func NewOAuthSessionAuthenticator() *OAuthSessionAuthenticator {
	return &OAuthSessionAuthenticator{}
}

// AuthenticateHTTP derives the caller identity from the presented OAuth
// access token. Opaque tokens are accepted with a generic handle; the
// allow-list then decides whether that handle may see any tools.
func (a *OAuthSessionAuthenticator) AuthenticateHTTP(r *http.Request) (SessionPrincipal, error) {
	presented := parseBearerToken(r.Header.Get("Authorization"))
	if presented == "" {
		return SessionPrincipal{}, ErrBearerTokenMissing
	}
	return principalFromToken(presented), nil
}

// AuthenticateStdio rejects stdio sessions; the OAuth flow requires HTTP.
func (a *OAuthSessionAuthenticator) AuthenticateStdio() (SessionPrincipal, error) {
	return SessionPrincipal{}, fmt.Errorf("%w; oauth sessions require the http transport", ErrSessionTokenMissing)
}

func principalFromToken(token string) SessionPrincipal {
	if identity, ok := auth.IdentityFromToken(token); ok {
		return SessionPrincipal{
			Handle:      identity.Handle,
			DisplayName: identity.DisplayName,
		}
	}
	return SessionPrincipal{
		Handle:      "mcp-session",
		DisplayName: "MCP session",
	}
}

func parseBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
