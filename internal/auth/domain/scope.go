package domain

import (
	"slices"
	"strings"
)

// Scopes known to the password grant.
const (
	ScopeOpenID        = "openid"
	ScopeEmail         = "email"
	ScopeProfile       = "profile"
	ScopeRoles         = "roles"
	ScopeOfflineAccess = "offline_access"
)

// UserScopeCatalog is the global set of scopes a resource owner can be
// granted. Client-credentials tokens are scoped by the client instead.
var UserScopeCatalog = []string{ScopeOpenID, ScopeEmail, ScopeProfile, ScopeRoles, ScopeOfflineAccess}

// ParseScope splits a space-delimited scope parameter.
func ParseScope(s string) []string {
	return strings.Fields(s)
}

// FormatScope joins scopes for the wire.
func FormatScope(scopes []string) string {
	return strings.Join(scopes, " ")
}

// IntersectScopes keeps the requested scopes that are allowed, in request
// order and without duplicates. Unknown scopes are dropped silently.
func IntersectScopes(requested, allowed []string) []string {
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if slices.Contains(allowed, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// GrantScopes applies the defaulting rule: an empty request means the full
// allowed set.
func GrantScopes(requested, allowed []string) []string {
	if len(requested) == 0 {
		return slices.Clone(allowed)
	}
	return IntersectScopes(requested, allowed)
}
