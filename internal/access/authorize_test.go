package access

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestEffectivePermissionsByRole(t *testing.T) {
	cases := []struct {
		name string
		user User
		want []Permission
	}{
		{"admin has every section", User{Role: RoleAdmin}, AllPermissions},
		{"basic", User{Role: RoleStaffBasic}, []Permission{PermDashboard, PermMembers, PermSMS}},
		{"extended", User{Role: RoleStaffExtended}, []Permission{PermDashboard, PermMembers, PermSMS, PermStaff}},
		{"basic plus staff grant", User{Role: RoleStaffBasic, Grants: []Permission{PermStaff}},
			[]Permission{PermDashboard, PermMembers, PermSMS, PermStaff}},
		{"revoke base", User{Role: RoleStaffBasic, Revokes: []Permission{PermSMS}},
			[]Permission{PermDashboard, PermMembers}},
		{"duplicate grant ignored", User{Role: RoleStaffBasic, Grants: []Permission{PermMembers, PermFinance, PermFinance}},
			[]Permission{PermDashboard, PermMembers, PermSMS, PermFinance}},
		{"unknown role", User{Role: "owner"}, []Permission{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectivePermissions(tc.user)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRevokeWinsOverGrant(t *testing.T) {
	u := User{Role: RoleStaffBasic, Grants: []Permission{PermFinance}, Revokes: []Permission{PermFinance}}
	for _, p := range EffectivePermissions(u) {
		if p == PermFinance {
			t.Fatal("permission in both grants and revokes must be removed")
		}
	}
}

func TestEffectivePermissionsWithinBound(t *testing.T) {
	for _, role := range Roles {
		for _, g := range AllPermissions {
			for _, r := range AllPermissions {
				u := User{Role: role, Grants: []Permission{g}, Revokes: []Permission{r}}
				allowed := map[Permission]bool{g: true}
				for _, p := range BasePermissions(role) {
					allowed[p] = true
				}
				for _, p := range EffectivePermissions(u) {
					if !allowed[p] || p == r {
						t.Fatalf("%s grant=%s revoke=%s: unexpected %s", role, g, r, p)
					}
				}
			}
		}
	}
}

func TestBasePermissionsIsCopy(t *testing.T) {
	base := BasePermissions(RoleStaffBasic)
	base[0] = PermLogs
	if BasePermissions(RoleStaffBasic)[0] != PermDashboard {
		t.Fatal("role table mutated through returned slice")
	}
}

func TestCanDeleteUser(t *testing.T) {
	users := DefaultUsers()
	admin := users[0]
	if CanDeleteUser(users, admin) {
		t.Fatal("sole admin must not be deletable")
	}
	if !CanDeleteUser(users, users[1]) {
		t.Fatal("staff should be deletable")
	}
	users = append(users, User{Username: "Second", Role: RoleAdmin})
	if !CanDeleteUser(users, admin) {
		t.Fatal("admin deletable once another admin exists")
	}
}

func TestIsAuthorized(t *testing.T) {
	s := NewSession(User{Username: "Raja", Role: RoleStaffBasic}, base)
	if !IsAuthorized(s, PermMembers) {
		t.Fatal("basic staff should open members")
	}
	if IsAuthorized(s, PermFinance) {
		t.Fatal("basic staff should not open finance")
	}
}

func TestDiffPermissions(t *testing.T) {
	grants, revokes := DiffPermissions(RoleStaffBasic, []Permission{PermDashboard, PermSMS, PermFinance})
	if !reflect.DeepEqual(grants, []Permission{PermFinance}) {
		t.Fatalf("grants = %v", grants)
	}
	if !reflect.DeepEqual(revokes, []Permission{PermMembers}) {
		t.Fatalf("revokes = %v", revokes)
	}

	u := User{Role: RoleStaffBasic, Grants: grants, Revokes: revokes}
	if got := EffectivePermissions(u); !reflect.DeepEqual(got, []Permission{PermDashboard, PermSMS, PermFinance}) {
		t.Fatalf("effective = %v", got)
	}

	grants, revokes = DiffPermissions(RoleAdmin, AllPermissions)
	if len(grants) != 0 || len(revokes) != 0 {
		t.Fatalf("admin with all sections should diff to nothing: %v %v", grants, revokes)
	}
}

func TestRequire(t *testing.T) {
	if _, err := Require(context.Background(), PermDashboard); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	ctx := ContextWithSession(context.Background(), NewSession(User{Username: "Raja", Role: RoleStaffBasic}, base))
	if _, err := Require(ctx, PermLogs); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	s, err := Require(ctx, PermSMS)
	if err != nil || s.Username != "Raja" {
		t.Fatalf("Require sms: %v %+v", err, s)
	}
}

func TestParseRoleAndPermissions(t *testing.T) {
	r, err := ParseRole(" Staff-Basic ")
	if err != nil || r != RoleStaffBasic {
		t.Fatalf("ParseRole: %v %q", err, r)
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := ParsePermission("gym"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
