package auth

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func testJWT(t *testing.T, payload string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encoded)
}

func TestIdentityFromToken_PreferredUsernameWins(t *testing.T) {
	token := testJWT(t, `{"sub":"user-123","preferred_username":"alice","name":"Alice Example"}`)
	identity, ok := IdentityFromToken(token)
	require.True(t, ok)
	require.Equal(t, "alice", identity.Handle)
	require.Equal(t, "Alice Example", identity.DisplayName)
}

func TestIdentityFromToken_FallsBackToLoginThenSubject(t *testing.T) {
	identity, ok := IdentityFromToken(testJWT(t, `{"sub":"user-123","login":"bob"}`))
	require.True(t, ok)
	require.Equal(t, "bob", identity.Handle)

	identity, ok = IdentityFromToken(testJWT(t, `{"sub":"user-123"}`))
	require.True(t, ok)
	require.Equal(t, "user-123", identity.Handle)
	require.Equal(t, "user-123", identity.DisplayName)
}

func TestIdentityFromToken_OpaqueTokenYieldsNoIdentity(t *testing.T) {
	_, ok := IdentityFromToken("opaque-session-token")
	require.False(t, ok)

	_, ok = IdentityFromToken("")
	require.False(t, ok)
}

func TestIdentityFromToken_EmptyClaimsYieldNoIdentity(t *testing.T) {
	_, ok := IdentityFromToken(testJWT(t, `{}`))
	require.False(t, ok)
}
