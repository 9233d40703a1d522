package domain

import "strings"

// Role differentiates what a caller may see and change.
type Role string

const (
	RoleStudent    Role = "student"
	RoleManager    Role = "manager"
	RoleDepartment Role = "department"
	RoleLeadership Role = "leadership"
)

// Identity is the resolved caller passed explicitly into every workflow call.
type Identity struct {
	UserID      string
	Role        Role
	Department  string
	DisplayName string
}

// IsStaff reports whether the identity acts on behalf of the university.
func (i Identity) IsStaff() bool {
	switch i.Role {
	case RoleManager, RoleDepartment, RoleLeadership:
		return true
	}
	return false
}

// CanSeeAll reports whether the identity is unscoped.
func (i Identity) CanSeeAll() bool {
	return i.Role == RoleManager || i.Role == RoleLeadership
}

// ParseRole validates a role value.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleStudent, RoleManager, RoleDepartment, RoleLeadership:
		return role, true
	}
	return "", false
}
