package access

import (
	"fmt"
	"strings"
)

// Permission names an application section.
type Permission string

const (
	PermDashboard Permission = "dashboard"
	PermMembers   Permission = "members"
	PermSMS       Permission = "sms"
	PermFinance   Permission = "finance"
	PermStaff     Permission = "staff"
	PermSettings  Permission = "settings"
	PermLogs      Permission = "logs"
)

// AllPermissions lists every section in navigation order.
var AllPermissions = []Permission{
	PermDashboard, PermMembers, PermSMS, PermFinance, PermStaff, PermSettings, PermLogs,
}

// Role is a staff role tag.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleStaffBasic    Role = "staff-basic"
	RoleStaffExtended Role = "staff-extended"
)

// Roles lists the known roles.
var Roles = []Role{RoleAdmin, RoleStaffBasic, RoleStaffExtended}

var rolePermissions = map[Role][]Permission{
	RoleAdmin:         {PermDashboard, PermMembers, PermSMS, PermFinance, PermStaff, PermSettings, PermLogs},
	RoleStaffBasic:    {PermDashboard, PermMembers, PermSMS},
	RoleStaffExtended: {PermDashboard, PermMembers, PermSMS, PermStaff},
}

// BasePermissions returns a copy of the role's base set; unknown roles get none.
func BasePermissions(role Role) []Permission {
	base := rolePermissions[role]
	out := make([]Permission, len(base))
	copy(out, base)
	return out
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// ParseRole normalises input such as " Staff-Basic " into a known Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// ParsePermission normalises input into a known Permission.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, s)
	}
	return p, nil
}

// ParsePermissions parses a list, dropping duplicates and blanks.
func ParsePermissions(values []string) ([]Permission, error) {
	out := make([]Permission, 0, len(values))
	seen := make(map[Permission]struct{}, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		p, err := ParsePermission(v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
