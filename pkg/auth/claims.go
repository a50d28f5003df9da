package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// ResourceRef narrows a token's reach to a specific entity, e.g.
// {"vessel", "<uuid>"}. An empty Resources list on the claims means the
// token is not resource-restricted.
type ResourceRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Claims are the RS256 access-token claims flightcore issues and verifies.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the subject's unique identifier (UUID).
	UserID string `json:"uid"`

	// UniqueName is the user's unique login handle.
	UniqueName string `json:"unique_name"`

	// Name is the user's display name.
	Name string `json:"name"`

	// Roles carries the capability grants this token asserts.
	Roles []string `json:"roles"`

	// Resources, when non-empty, narrows the token to specific entities.
	Resources []ResourceRef `json:"resources,omitempty"`
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// AllowsResource reports whether the claims permit access to (kind, id),
// either because the token is unrestricted (no Resources entries at all)
// or because (kind, id) is explicitly listed.
func (c *Claims) AllowsResource(kind, id string) bool {
	if len(c.Resources) == 0 {
		return true
	}
	for _, r := range c.Resources {
		if r.Kind == kind && r.ID == id {
			return true
		}
	}
	return false
}
