package access

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"actionplus.app/internal/audit"
	"actionplus.app/internal/kv"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditor) Append(_ context.Context, ev audit.Event) audit.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return audit.LogEntry{Action: ev.Action}
}

func (r *recordingAuditor) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

type stubRepo struct {
	loadFn func(ctx context.Context) ([]User, error)
	saveFn func(ctx context.Context, users []User) error
}

func (s stubRepo) Load(ctx context.Context) ([]User, error) { return s.loadFn(ctx) }
func (s stubRepo) Save(ctx context.Context, users []User) error {
	if s.saveFn == nil {
		return nil
	}
	return s.saveFn(ctx, users)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T) (*Service, *recordingAuditor, *MemorySessionStore) {
	t.Helper()
	rec := &recordingAuditor{}
	sessions := &MemorySessionStore{}
	repo := NewKVUserRepository(kv.NewMemoryStore(), quietLogger())
	svc, err := NewService(repo,
		WithAuditor(rec),
		WithSessions(sessions),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return base }),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, rec, sessions
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

func TestUsersSeedsDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	users, err := svc.Users(context.Background())
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 3 || users[0].Username != "Bis" || users[0].Role != RoleAdmin {
		t.Fatalf("unexpected seed: %+v", users)
	}
}

func TestCorruptUsersReadAsEmpty(t *testing.T) {
	mem := kv.NewMemoryStore()
	_ = mem.Put(context.Background(), kv.KeyUsers, []byte("not json"))
	repo := NewKVUserRepository(mem, quietLogger())
	users, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty collection, got %d", len(users))
	}
}

func TestAuthenticate(t *testing.T) {
	svc, rec, sessions := newTestService(t)
	ctx := context.Background()

	s, err := svc.Authenticate(ctx, "raja", "r123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if s.Username != "Raja" || s.Role != RoleStaffBasic || !s.IssuedAt.Equal(base) {
		t.Fatalf("unexpected session: %+v", s)
	}
	cached, err := sessions.Load(ctx)
	if err != nil || cached.Username != "Raja" {
		t.Fatalf("session not cached: %v %+v", err, cached)
	}

	if _, err := svc.Authenticate(ctx, "Raja", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost", "x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	want := []string{"auth.login", "auth.login_failed", "auth.login_failed"}
	if got := rec.actions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		name string
		in   UserInput
		want error
	}{
		{"missing username", UserInput{Role: RoleStaffBasic, Secret: "x", Confirm: "x"}, ErrInvalidInput},
		{"missing role", UserInput{Username: "Asha", Secret: "x", Confirm: "x"}, ErrInvalidInput},
		{"unknown role", UserInput{Username: "Asha", Role: "owner", Secret: "x", Confirm: "x"}, ErrInvalidInput},
		{"missing password", UserInput{Username: "Asha", Role: RoleStaffBasic}, ErrInvalidInput},
		{"mismatch", UserInput{Username: "Asha", Role: RoleStaffBasic, Secret: "x", Confirm: "y"}, ErrInvalidInput},
		{"duplicate ignoring case", UserInput{Username: "bis", Role: RoleStaffBasic, Secret: "x", Confirm: "x"}, ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateUser(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateUserFromSelection(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, UserInput{
		Username: " Asha ",
		Secret:   "s3",
		Confirm:  "s3",
		Role:     RoleStaffBasic,
		Selected: []Permission{PermDashboard, PermMembers, PermFinance},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Username != "Asha" {
		t.Fatalf("username not trimmed: %q", u.Username)
	}
	if !reflect.DeepEqual(u.Grants, []Permission{PermFinance}) || !reflect.DeepEqual(u.Revokes, []Permission{PermSMS}) {
		t.Fatalf("grants=%v revokes=%v", u.Grants, u.Revokes)
	}
	users, _ := svc.Users(ctx)
	if len(users) != 4 {
		t.Fatalf("len = %d, want 4", len(users))
	}
	if got := rec.actions(); len(got) != 1 || got[0] != "user.create" {
		t.Fatalf("events = %v", got)
	}
}

func TestUpdateUserRefreshesOwnSession(t *testing.T) {
	svc, rec, sessions := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Authenticate(ctx, "Raja", "r123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	grants := []Permission{PermStaff}
	if _, err := svc.UpdateUser(ctx, "raja", UserUpdate{Grants: &grants}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	s, _ := sessions.Load(ctx)
	want := []Permission{PermDashboard, PermMembers, PermSMS, PermStaff}
	if !reflect.DeepEqual(s.Permissions, want) {
		t.Fatalf("session perms = %v, want %v", s.Permissions, want)
	}

	role := RoleStaffExtended
	if _, err := svc.UpdateUser(ctx, "Kishan", UserUpdate{Role: &role, Selected: []Permission{PermDashboard}}); err != nil {
		t.Fatalf("UpdateUser other: %v", err)
	}
	s, _ = sessions.Load(ctx)
	if s.Username != "Raja" || !reflect.DeepEqual(s.Permissions, want) {
		t.Fatalf("editing another user must not touch the session: %+v", s)
	}
	if got := rec.actions(); got[len(got)-1] != "user.update" {
		t.Fatalf("events = %v", got)
	}
}

func TestUpdateUserSecret(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.UpdateUser(ctx, "Raja", UserUpdate{Secret: "new", Confirm: "nope"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, "Raja", UserUpdate{Secret: "new", Confirm: "new"}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "Raja", "new"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, err := svc.UpdateUser(ctx, "ghost", UserUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRoleKeepsOverrides(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	grants := []Permission{PermFinance}
	if _, err := svc.UpdateUser(ctx, "Raja", UserUpdate{Grants: &grants}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	role := RoleStaffExtended
	u, err := svc.UpdateUser(ctx, "Raja", UserUpdate{Role: &role})
	if err != nil {
		t.Fatalf("UpdateUser role: %v", err)
	}
	want := []Permission{PermDashboard, PermMembers, PermSMS, PermStaff, PermFinance}
	if got := EffectivePermissions(u); !reflect.DeepEqual(got, want) {
		t.Fatalf("effective = %v, want %v", got, want)
	}
}

func TestDeleteUser(t *testing.T) {
	svc, rec, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.DeleteUser(ctx, "Bis"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
	if err := svc.DeleteUser(ctx, "kishan"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := svc.DeleteUser(ctx, "kishan"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, UserInput{Username: "Owner", Role: RoleAdmin, Secret: "o", Confirm: "o"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := svc.DeleteUser(ctx, "Bis"); err != nil {
		t.Fatalf("admin should be deletable with a second admin: %v", err)
	}
	users, _ := svc.Users(ctx)
	if len(users) != 2 {
		t.Fatalf("len = %d, want 2", len(users))
	}
	deletes := 0
	for _, a := range rec.actions() {
		if a == "user.delete" {
			deletes++
		}
	}
	if deletes != 2 {
		t.Fatalf("user.delete events = %d, want 2", deletes)
	}
}

func TestRepositoryErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	svc, err := NewService(stubRepo{
		loadFn: func(context.Context) ([]User, error) { return DefaultUsers(), nil },
		saveFn: func(context.Context, []User) error { return boom },
	}, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), UserInput{Username: "Asha", Role: RoleStaffBasic, Secret: "a", Confirm: "a"}); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	svc, rec, sessions := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Authenticate(ctx, "Bis", "a123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := sessions.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if got := rec.actions(); got[len(got)-1] != "auth.logout" {
		t.Fatalf("events = %v", got)
	}
}
