package ledger

// =============================================================================
// AUTHORIZATION
// =============================================================================

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleResident Role = "RESIDENT"
)

// Actor is the authenticated caller as forwarded by the gateway.
type Actor struct {
	UserID   string
	Role     Role
	TenantID TenantID
}

// Authorize permits only the administrator of tenant. It must run before any
// store access; the store itself does not check the caller.
func (a Actor) Authorize(tenant TenantID) error {
	if a.UserID == "" || a.TenantID == "" {
		return ErrForbidden
	}
	if a.Role != RoleAdmin || a.TenantID != tenant {
		return ErrForbidden
	}
	return nil
}
