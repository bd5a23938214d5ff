package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// OAuthConfig configures the authorization-code exchange with the external
// identity provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// OAuthFlow wraps the provider's authorization-code flow. The gateway only
// consumes the resulting identity; it is not an OAuth provider itself.
type OAuthFlow struct {
	config oauth2.Config
}

// NewOAuthFlow validates provider configuration and returns a flow helper.
func NewOAuthFlow(cfg OAuthConfig) (*OAuthFlow, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("oauth: ClientID is required")
	}
	if strings.TrimSpace(cfg.AuthURL) == "" || strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("oauth: AuthURL and TokenURL are required")
	}

	return &OAuthFlow{
		config: oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			RedirectURL:  strings.TrimSpace(cfg.RedirectURL),
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  strings.TrimSpace(cfg.AuthURL),
				TokenURL: strings.TrimSpace(cfg.TokenURL),
			},
		},
	}, nil
}

// AuthCodeURL returns the provider URL that starts the redirect flow.
func (f *OAuthFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for an access token and derives the
// session identity from it.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (string, Identity, error) {
	token, err := f.config.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", Identity{}, fmt.Errorf("exchanging authorization code: %w", err)
	}

	accessToken := strings.TrimSpace(token.AccessToken)
	if accessToken == "" {
		return "", Identity{}, fmt.Errorf("identity provider returned an empty access token")
	}

	identity, ok := IdentityFromToken(accessToken)
	if !ok {
		// Opaque provider tokens still authenticate the session; the
		// handle falls back to the same placeholder the session
		// authenticator derives for opaque bearer tokens.
		identity = Identity{Handle: "mcp-session", DisplayName: "MCP session"}
	}
	return accessToken, identity, nil
}
