package rbac

import (
	"context"
	"strings"
)

// Role is the coarse privilege level of an account.
type Role string

const (
	// RoleAdmin has full access.
	RoleAdmin Role = "ADMIN"
	// RoleEditor may manage content it owns.
	RoleEditor Role = "EDITOR"
	// RoleUser has no admin access.
	RoleUser Role = "USER"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleUser}
}

// StaffRoles are the roles admitted to the admin area.
func StaffRoles() []Role {
	return []Role{RoleAdmin, RoleEditor}
}

// ParseRole normalises and validates a role name.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleEditor, RoleUser:
		return r, true
	}
	return "", false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.In(Roles()...)
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// Principal describes the authenticated actor, with its role as currently
// stored for the account.
type Principal struct {
	AccountID string
	Role      Role
	Email     string
	Name      string
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsStaff reports whether the principal may enter the admin area.
func (p Principal) IsStaff() bool { return p.Role.In(StaffRoles()...) }

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
