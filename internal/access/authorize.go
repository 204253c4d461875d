package access

import "strings"

// EffectivePermissions computes (base(role) ∪ grants) − revokes. The result
// is base order followed by grant order, without duplicates. A permission in
// both grants and revokes is removed.
func EffectivePermissions(u User) []Permission {
	perms := BasePermissions(u.Role)
	have := make(map[Permission]struct{}, len(perms)+len(u.Grants))
	for _, p := range perms {
		have[p] = struct{}{}
	}
	for _, p := range u.Grants {
		if _, ok := have[p]; ok {
			continue
		}
		have[p] = struct{}{}
		perms = append(perms, p)
	}
	if len(u.Revokes) == 0 {
		return perms
	}
	revoked := make(map[Permission]struct{}, len(u.Revokes))
	for _, p := range u.Revokes {
		revoked[p] = struct{}{}
	}
	out := perms[:0]
	for _, p := range perms {
		if _, ok := revoked[p]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsAuthorized reports whether the session may open section.
func IsAuthorized(s Session, section Permission) bool {
	return s.Has(section)
}

// CanDeleteUser is false only when target is an admin and no other admin exists.
func CanDeleteUser(users []User, target User) bool {
	if target.Role != RoleAdmin {
		return true
	}
	admins := 0
	for _, u := range users {
		if u.Role == RoleAdmin {
			admins++
		}
	}
	return admins > 1
}

// DiffPermissions turns the sections selected in the user form into grants
// and revokes relative to role's base set.
func DiffPermissions(role Role, selected []Permission) (grants, revokes []Permission) {
	base := BasePermissions(role)
	inBase := make(map[Permission]struct{}, len(base))
	for _, p := range base {
		inBase[p] = struct{}{}
	}
	chosen := make(map[Permission]struct{}, len(selected))
	grants = []Permission{}
	for _, p := range selected {
		if _, dup := chosen[p]; dup {
			continue
		}
		chosen[p] = struct{}{}
		if _, ok := inBase[p]; !ok {
			grants = append(grants, p)
		}
	}
	revokes = []Permission{}
	for _, p := range base {
		if _, ok := chosen[p]; !ok {
			revokes = append(revokes, p)
		}
	}
	return grants, revokes
}

func sameUsername(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
