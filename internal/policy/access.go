// Package policy defines the access gate for MCP tool sessions.
package policy

import (
	"fmt"
	"strings"
)

// Allowlist holds the configured set of caller handles permitted to use the
// tool surface. An empty allowlist is public mode: every authenticated caller
// is permitted. A non-empty allowlist permits exactly the listed handles,
// matched case-sensitively with no normalization of the caller's handle.
//
// The gate is evaluated once per session. A denied session sees no tools at
// all rather than per-call errors.
type Allowlist struct {
	handles  []string
	byHandle map[string]struct{}
}

// NewAllowlist builds an allowlist from configured handles. Configured values
// are trimmed and de-duplicated; empty entries are dropped, so a configuration
// of only blanks still means public mode.
func NewAllowlist(handles []string) *Allowlist {
	normalized := make([]string, 0, len(handles))
	byHandle := make(map[string]struct{}, len(handles))
	for _, handle := range handles {
		trimmed := strings.TrimSpace(handle)
		if trimmed == "" {
			continue
		}
		if _, exists := byHandle[trimmed]; exists {
			continue
		}
		byHandle[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return &Allowlist{
		handles:  normalized,
		byHandle: byHandle,
	}
}

// Public reports whether the allowlist is empty, i.e. every caller passes.
func (a *Allowlist) Public() bool {
	return a == nil || len(a.byHandle) == 0
}

// IsPermitted reports whether a caller handle may have tools registered.
// Absence of configuration means allow all, never deny all.
func (a *Allowlist) IsPermitted(handle string) bool {
	if a.Public() {
		return true
	}
	_, ok := a.byHandle[handle]
	return ok
}

// Handles returns the configured handles in configuration order.
func (a *Allowlist) Handles() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.handles))
	copy(out, a.handles)
	return out
}

// DenyError describes an access denial for logging. The tool surface itself
// is withheld structurally; this error never reaches the caller as a per-call
// failure object.
func DenyError(handle string) error {
	trimmed := strings.TrimSpace(handle)
	if trimmed == "" {
		trimmed = "unknown"
	}
	return fmt.Errorf("caller %s is not in the configured allowlist", trimmed)
}
