package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenSessionAuthenticator_DerivesHandleFromJWT(t *testing.T) {
	token := jwtForHandle(t, "alice")
	authn := NewTokenSessionAuthenticator(token)

	principal, err := authn.AuthenticateStdio()
	require.NoError(t, err)
	require.Equal(t, "alice", principal.Handle)
}

func TestTokenSessionAuthenticator_OpaqueTokenGetsGenericHandle(t *testing.T) {
	authn := NewTokenSessionAuthenticator("opaque-token")

	principal, err := authn.AuthenticateStdio()
	require.NoError(t, err)
	require.Equal(t, "mcp-session", principal.Handle)
}

func TestOAuthSessionAuthenticator_HTTP(t *testing.T) {
	authn := NewOAuthSessionAuthenticator()

	req := httptest.NewRequest(http.MethodPost, "/mcp/v1/tools/call", nil)
	_, err := authn.AuthenticateHTTP(req)
	require.ErrorIs(t, err, ErrBearerTokenMissing)

	req.Header.Set("Authorization", "Bearer "+jwtForHandle(t, "carol"))
	principal, err := authn.AuthenticateHTTP(req)
	require.NoError(t, err)
	require.Equal(t, "carol", principal.Handle)

	req.Header.Set("Authorization", "Bearer opaque-access-token")
	principal, err = authn.AuthenticateHTTP(req)
	require.NoError(t, err)
	require.Equal(t, "mcp-session", principal.Handle)
}

func TestOAuthSessionAuthenticator_RejectsStdio(t *testing.T) {
	_, err := NewOAuthSessionAuthenticator().AuthenticateStdio()
	require.ErrorIs(t, err, ErrSessionTokenMissing)
}

func TestParseBearerToken(t *testing.T) {
	require.Equal(t, "abc", parseBearerToken("Bearer abc"))
	require.Equal(t, "abc", parseBearerToken("bearer abc"))
	require.Empty(t, parseBearerToken("Basic abc"))
	require.Empty(t, parseBearerToken("Bearer"))
	require.Empty(t, parseBearerToken(""))
}
