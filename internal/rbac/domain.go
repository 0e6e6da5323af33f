package rbac

import (
	"context"
	"fmt"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleTourist Role = "Tourist"
	RoleGuide   Role = "Tourist Guide"
	RoleAdmin   Role = "Admin"
)

// DefaultRole is assigned to every newly created account.
const DefaultRole = RoleTourist

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTourist, RoleGuide, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored value into a Role.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return "", fmt.Errorf("rbac: unknown role %q", value)
	}
	return role, nil
}

// RoleResolver looks up the current role of the account owning email.
// found is false when no such account exists; err is reserved for store failures.
type RoleResolver interface {
	RoleOf(ctx context.Context, email string) (role Role, found bool, err error)
}
