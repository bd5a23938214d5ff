package server

import (
	"github.com/preangelleo/ghost-blog-management-mcp/internal/policy"
	"github.com/preangelleo/ghost-blog-management-mcp/internal/tools"
)

// AccessGate decides, once per session, which tool surface a caller sees.
// Denied callers get an empty surface: tools/list returns nothing and
// tools/call treats every name as unknown, so tool existence is never leaked.
type AccessGate struct {
	allow *policy.Allowlist
}

// NewAccessGate wraps an allowlist as a session-level gate. A nil or empty
// allowlist means public mode.
func NewAccessGate(allow *policy.Allowlist) *AccessGate {
	return &AccessGate{allow: allow}
}

// Permitted reports whether the caller may see the tool surface at all.
func (g *AccessGate) Permitted(principal SessionPrincipal) bool {
	if g == nil {
		return true
	}
	return g.allow.IsPermitted(principal.Handle)
}

// VisibleTools returns the catalog's tools for a permitted caller and nothing
// for a denied one.
func (g *AccessGate) VisibleTools(catalog *tools.Catalog, principal SessionPrincipal) []tools.Spec {
	if !g.Permitted(principal) {
		return nil
	}
	return catalog.List()
}

// denyDetail is the audit-log detail for a structurally withheld call.
func (g *AccessGate) denyDetail(principal SessionPrincipal) string {
	return policy.DenyError(principal.Handle).Error()
}
