package access

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"actionplus.app/internal/audit"
	"actionplus.app/internal/obs"
)

// Auditor records workflow events. Implementations must not fail the caller.
type Auditor interface {
	Append(ctx context.Context, ev audit.Event) audit.LogEntry
}

// UserInput describes a new staff account. When Selected is non-nil the
// grants and revokes are derived from it against Role.
type UserInput struct {
	Username string
	Secret   string
	Confirm  string
	Role     Role
	Grants   []Permission
	Revokes  []Permission
	Selected []Permission
}

// UserUpdate changes an existing account. Nil fields are left untouched; an
// empty Secret keeps the current one.
type UserUpdate struct {
	Role     *Role
	Grants   *[]Permission
	Revokes  *[]Permission
	Selected []Permission
	Secret   string
	Confirm  string
}

// Service administers staff accounts and sessions.
type Service struct {
	repo     UserRepository
	sessions SessionStore
	auditor  Auditor
	log      logrus.FieldLogger
	now      func() time.Time
	mu       sync.Mutex
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithSessions enables session refresh after edits to the session owner.
func WithSessions(s SessionStore) ServiceOption {
	return func(svc *Service) { svc.sessions = s }
}

// WithAuditor routes user events into the audit ledger.
func WithAuditor(a Auditor) ServiceOption {
	return func(svc *Service) { svc.auditor = a }
}

// WithLogger overrides the service logger.
func WithLogger(l logrus.FieldLogger) ServiceOption {
	return func(svc *Service) {
		if l != nil {
			svc.log = l
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(svc *Service) {
		if fn != nil {
			svc.now = fn
		}
	}
}

func NewService(repo UserRepository, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("user repository is required")
	}
	svc := &Service{repo: repo, log: obs.Logger(), now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Users returns the current collection.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Load(ctx)
}

// User finds one account by username, ignoring case.
func (s *Service) User(ctx context.Context, username string) (User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return User{}, err
	}
	idx := indexOf(users, username)
	if idx < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	return users[idx], nil
}

// Authenticate checks credentials and returns a fresh session. The session is
// also saved when a SessionStore is configured.
func (s *Service) Authenticate(ctx context.Context, username, secret string) (Session, error) {
	username = strings.TrimSpace(username)
	s.mu.Lock()
	users, err := s.repo.Load(ctx)
	s.mu.Unlock()
	if err != nil {
		return Session{}, err
	}
	idx := indexOf(users, username)
	if idx < 0 || username == "" || !secretsEqual(users[idx].Secret, secret) {
		obs.Logins.WithLabelValues("failure").Inc()
		s.record(ctx, audit.Event{
			Actor:      username,
			Action:     "auth.login_failed",
			TargetType: "user",
			TargetID:   username,
			Summary:    "Failed login attempt",
		})
		return Session{}, ErrUnauthorized
	}
	u := users[idx]
	session := NewSession(u, s.now())
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, session); err != nil {
			return Session{}, fmt.Errorf("save session: %w", err)
		}
	}
	obs.Logins.WithLabelValues("success").Inc()
	s.record(ctx, audit.Event{
		Actor:      u.Username,
		Action:     "auth.login",
		TargetType: "user",
		TargetID:   u.Username,
		Summary:    fmt.Sprintf("%s logged in", u.Username),
	})
	return session, nil
}

// Logout clears the cached session.
func (s *Service) Logout(ctx context.Context) error {
	if s.sessions == nil {
		return nil
	}
	current, err := s.sessions.Load(ctx)
	if err == nil {
		s.record(ctx, audit.Event{
			Actor:      current.Username,
			Action:     "auth.logout",
			TargetType: "user",
			TargetID:   current.Username,
			Summary:    fmt.Sprintf("%s logged out", current.Username),
		})
	}
	return s.sessions.Clear(ctx)
}

// CreateUser validates in and appends a new account.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if in.Role == "" {
		return User{}, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if in.Secret == "" || in.Confirm == "" {
		return User{}, fmt.Errorf("%w: password and confirmation are required", ErrInvalidInput)
	}
	if in.Secret != in.Confirm {
		return User{}, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	grants, revokes := dedupe(in.Grants), dedupe(in.Revokes)
	if in.Selected != nil {
		grants, revokes = DiffPermissions(in.Role, in.Selected)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.repo.Load(ctx)
	if err != nil {
		return User{}, err
	}
	if indexOf(users, username) >= 0 {
		return User{}, fmt.Errorf("%w: %s", ErrConflict, username)
	}
	u := User{Username: username, Secret: in.Secret, Role: in.Role, Grants: grants, Revokes: revokes}
	if err := s.repo.Save(ctx, append(users, u)); err != nil {
		return User{}, err
	}
	s.record(ctx, audit.Event{
		Action:     "user.create",
		TargetType: "user",
		TargetID:   u.Username,
		Summary:    fmt.Sprintf("Created user %s (%s)", u.Username, u.Role),
		Meta:       permissionMeta(u),
	})
	return u, nil
}

// UpdateUser applies upd to the named account. When the account owns the
// active session, the session is recomputed and saved.
func (s *Service) UpdateUser(ctx context.Context, username string, upd UserUpdate) (User, error) {
	if upd.Secret != "" || upd.Confirm != "" {
		if upd.Secret != upd.Confirm {
			return User{}, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
		}
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *upd.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.repo.Load(ctx)
	if err != nil {
		return User{}, err
	}
	idx := indexOf(users, username)
	if idx < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	u := users[idx]
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Grants != nil {
		u.Grants = dedupe(*upd.Grants)
	}
	if upd.Revokes != nil {
		u.Revokes = dedupe(*upd.Revokes)
	}
	if upd.Selected != nil {
		u.Grants, u.Revokes = DiffPermissions(u.Role, upd.Selected)
	}
	if upd.Secret != "" {
		u.Secret = upd.Secret
	}
	users[idx] = u
	if err := s.repo.Save(ctx, users); err != nil {
		return User{}, err
	}
	s.refreshSession(ctx, u)
	s.record(ctx, audit.Event{
		Action:     "user.update",
		TargetType: "user",
		TargetID:   u.Username,
		Summary:    fmt.Sprintf("Updated user %s (%s)", u.Username, u.Role),
		Meta:       permissionMeta(u),
	})
	return u, nil
}

// DeleteUser removes the named account unless it is the last admin.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(users, username)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, username)
	}
	target := users[idx]
	if !CanDeleteUser(users, target) {
		return ErrLastAdmin
	}
	remaining := make([]User, 0, len(users)-1)
	remaining = append(remaining, users[:idx]...)
	remaining = append(remaining, users[idx+1:]...)
	if err := s.repo.Save(ctx, remaining); err != nil {
		return err
	}
	s.record(ctx, audit.Event{
		Action:     "user.delete",
		TargetType: "user",
		TargetID:   target.Username,
		Summary:    fmt.Sprintf("Deleted user %s", target.Username),
	})
	return nil
}

// CurrentSession loads the cached session.
func (s *Service) CurrentSession(ctx context.Context) (Session, error) {
	if s.sessions == nil {
		return Session{}, ErrNoSession
	}
	return s.sessions.Load(ctx)
}

func (s *Service) refreshSession(ctx context.Context, u User) {
	if s.sessions == nil {
		return
	}
	current, err := s.sessions.Load(ctx)
	if err != nil {
		return
	}
	if !current.Refresh(u) {
		return
	}
	if err := s.sessions.Save(ctx, current); err != nil {
		s.log.WithError(err).WithField("username", u.Username).Warn("session refresh failed")
	}
}

func (s *Service) record(ctx context.Context, ev audit.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Append(ctx, ev)
}

func indexOf(users []User, username string) int {
	for i, u := range users {
		if sameUsername(u.Username, username) {
			return i
		}
	}
	return -1
}

func secretsEqual(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func dedupe(perms []Permission) []Permission {
	out := make([]Permission, 0, len(perms))
	seen := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func permissionMeta(u User) map[string]any {
	return map[string]any{
		"role":    string(u.Role),
		"grants":  toStrings(u.Grants),
		"revokes": toStrings(u.Revokes),
	}
}

func toStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
