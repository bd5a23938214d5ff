package creds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_OverrideWinsOverEnvironment(t *testing.T) {
	resolved := Resolve(
		Override{AdminAPIKey: "override-key", APIURL: "https://override.example"},
		Environment{AdminAPIKey: "env-key", APIURL: "https://env.example"},
		"service-key",
	)
	require.Equal(t, "override-key", resolved.AdminAPIKey)
	require.Equal(t, "https://override.example", resolved.APIURL)
	require.Equal(t, "service-key", resolved.ServiceKey)
}

func TestResolve_EnvironmentFillsOmittedFields(t *testing.T) {
	resolved := Resolve(
		Override{},
		Environment{AdminAPIKey: "env-key", APIURL: "https://env.example"},
		"service-key",
	)
	require.Equal(t, "env-key", resolved.AdminAPIKey)
	require.Equal(t, "https://env.example", resolved.APIURL)
}

func TestResolve_FieldsResolveIndependently(t *testing.T) {
	// A call may supply only the URL; the key still comes from the
	// environment, not the backend default.
	resolved := Resolve(
		Override{APIURL: "https://b.example"},
		Environment{AdminAPIKey: "env-key", APIURL: "https://env.example"},
		"service-key",
	)
	require.Equal(t, "env-key", resolved.AdminAPIKey)
	require.Equal(t, "https://b.example", resolved.APIURL)
}

func TestResolve_NeitherPresentOmitsBothFields(t *testing.T) {
	resolved := Resolve(Override{}, Environment{}, "service-key")
	require.Empty(t, resolved.AdminAPIKey)
	require.Empty(t, resolved.APIURL)
	require.Equal(t, "service-key", resolved.ServiceKey)
}

func TestResolve_ServiceKeyAlwaysPresent(t *testing.T) {
	withOverride := Resolve(
		Override{AdminAPIKey: "k", APIURL: "https://o.example"},
		Environment{},
		"service-key",
	)
	require.Equal(t, "service-key", withOverride.ServiceKey)

	withoutAny := Resolve(Override{}, Environment{}, "service-key")
	require.Equal(t, "service-key", withoutAny.ServiceKey)
}

func TestExtractOverride_StripsCredentialArguments(t *testing.T) {
	override, cleaned := ExtractOverride(map[string]any{
		"title":        "T",
		ArgAdminAPIKey: "abc:def",
		ArgAPIURL:      "https://blog.example",
		"status":       "draft",
	})
	require.Equal(t, "abc:def", override.AdminAPIKey)
	require.Equal(t, "https://blog.example", override.APIURL)
	require.Equal(t, map[string]any{"title": "T", "status": "draft"}, cleaned)
}

func TestExtractOverride_NilArguments(t *testing.T) {
	override, cleaned := ExtractOverride(nil)
	require.Equal(t, Override{}, override)
	require.NotNil(t, cleaned)
	require.Empty(t, cleaned)
}
