package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowlist_EmptyPermitsEveryHandle(t *testing.T) {
	list := NewAllowlist(nil)
	require.True(t, list.Public())
	require.True(t, list.IsPermitted("anyone"))
	require.True(t, list.IsPermitted("never-seen-before"))
}

func TestAllowlist_BlankEntriesStillPublic(t *testing.T) {
	list := NewAllowlist([]string{"", "   "})
	require.True(t, list.Public())
	require.True(t, list.IsPermitted("anyone"))
}

func TestAllowlist_NonEmptyPermitsExactMembersOnly(t *testing.T) {
	list := NewAllowlist([]string{"alice", "bob"})
	require.False(t, list.Public())
	require.True(t, list.IsPermitted("alice"))
	require.True(t, list.IsPermitted("bob"))
	require.False(t, list.IsPermitted("carol"))
}

func TestAllowlist_MatchIsCaseSensitive(t *testing.T) {
	list := NewAllowlist([]string{"Alice"})
	require.True(t, list.IsPermitted("Alice"))
	require.False(t, list.IsPermitted("alice"))
	require.False(t, list.IsPermitted("ALICE"))
}

func TestAllowlist_ConfiguredEntriesAreTrimmedAndDeduplicated(t *testing.T) {
	list := NewAllowlist([]string{" alice ", "alice", "bob"})
	require.Equal(t, []string{"alice", "bob"}, list.Handles())
	require.True(t, list.IsPermitted("alice"))
	// The caller handle itself is never normalized.
	require.False(t, list.IsPermitted(" alice "))
}
