package access

import "time"

// User is a staff account. Secret is stored as entered.
type User struct {
	Username string       `json:"username"`
	Secret   string       `json:"password"`
	Role     Role         `json:"role"`
	Grants   []Permission `json:"grants"`
	Revokes  []Permission `json:"revokes"`
}

// Session is the cached identity of the logged-in user.
type Session struct {
	Username    string       `json:"username"`
	Role        Role         `json:"role"`
	Permissions []Permission `json:"effectivePermissions"`
	IssuedAt    time.Time    `json:"issuedAt"`
}

// NewSession computes the effective permissions of u.
func NewSession(u User, now time.Time) Session {
	return Session{
		Username:    u.Username,
		Role:        u.Role,
		Permissions: EffectivePermissions(u),
		IssuedAt:    now,
	}
}

// Refresh recomputes the session from the current user record. It returns
// false when u is not the session owner.
func (s *Session) Refresh(u User) bool {
	if !sameUsername(s.Username, u.Username) {
		return false
	}
	s.Role = u.Role
	s.Permissions = EffectivePermissions(u)
	return true
}

// Has reports whether the session carries permission p.
func (s Session) Has(p Permission) bool {
	for _, have := range s.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// DefaultUsers seeds an empty user collection, one per role.
func DefaultUsers() []User {
	return []User{
		{Username: "Bis", Secret: "a123", Role: RoleAdmin, Grants: []Permission{}, Revokes: []Permission{}},
		{Username: "Raja", Secret: "r123", Role: RoleStaffBasic, Grants: []Permission{}, Revokes: []Permission{}},
		{Username: "Kishan", Secret: "k123", Role: RoleStaffExtended, Grants: []Permission{}, Revokes: []Permission{}},
	}
}
