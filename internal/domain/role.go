package domain

import "fmt"

// Role enumerates the closed set of account roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMitra    Role = "mitra"
	RoleCustomer Role = "customer"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleMitra, RoleCustomer}
}

// ParseRole converts a stored or requested value into a Role.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin, RoleMitra, RoleCustomer:
		return Role(value), nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// HomePath is the default landing location for the role.
// Unrecognized roles land on the customer home.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleMitra:
		return "/mitra"
	default:
		return "/dashboard"
	}
}

// RoleStatus tracks how far role resolution has progressed.
type RoleStatus int

const (
	// RolePending means the lookup has not completed yet.
	RolePending RoleStatus = iota
	// RoleResolved means a role was found.
	RoleResolved
	// RoleMissing means the lookup finished without a usable role (not found or failed).
	RoleMissing
)

func (s RoleStatus) String() string {
	switch s {
	case RolePending:
		return "pending"
	case RoleResolved:
		return "resolved"
	case RoleMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// RoleResolution is the role half of a session. It resolves independently of the identity.
type RoleResolution struct {
	Status RoleStatus
	Role   Role
}

// PendingRole is the resolution while a lookup is in flight.
func PendingRole() RoleResolution { return RoleResolution{Status: RolePending} }

// ResolvedRole wraps a known role.
func ResolvedRole(role Role) RoleResolution {
	return RoleResolution{Status: RoleResolved, Role: role}
}

// MissingRole is the resolution after a failed or empty lookup.
func MissingRole() RoleResolution { return RoleResolution{Status: RoleMissing} }

// Known returns the role when resolution succeeded.
func (r RoleResolution) Known() (Role, bool) {
	if r.Status != RoleResolved {
		return "", false
	}
	return r.Role, true
}

// UserRole is the role-assignment record keyed by identity.
type UserRole struct {
	ID     string
	UserID string
	Role   Role
}
