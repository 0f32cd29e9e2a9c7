package domain

// Principal is the verified identity decoded from a bearer token. It is
// rebuilt on every request and never cached server-side.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Authorize decides whether p may act on a resource owned by resourceOwnerID.
// Access is granted to the owner, or to a principal holding requiredRole
// (admin when requiredRole is empty). An empty owner or principal ID never
// counts as ownership, so Authorize(p, "", RoleAdmin) is a pure role check.
func Authorize(p Principal, resourceOwnerID string, requiredRole Role) bool {
	if p.ID != "" && resourceOwnerID != "" && p.ID == resourceOwnerID {
		return true
	}
	if requiredRole == "" {
		requiredRole = RoleAdmin
	}
	return p.Role == requiredRole
}
