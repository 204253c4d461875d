package access

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, at time.Time) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	iss.now = func() time.Time { return at }
	return iss
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("  ", 0); err == nil {
		t.Fatal("expected error for blank secret")
	}
	iss, err := NewTokenIssuer("x", 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	if iss.ttl != defaultSessionTTL {
		t.Fatalf("ttl = %v, want %v", iss.ttl, defaultSessionTTL)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	iss := newTestIssuer(t, base)
	in := NewSession(User{Username: "Kishan", Role: RoleStaffExtended}, base)
	token, err := iss.Sign(in)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	out, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Username != "Kishan" || out.Role != RoleStaffExtended || !out.IssuedAt.Equal(base) {
		t.Fatalf("unexpected session: %+v", out)
	}
	if !reflect.DeepEqual(out.Permissions, in.Permissions) {
		t.Fatalf("perms = %v, want %v", out.Permissions, in.Permissions)
	}
}

func TestTokenRejected(t *testing.T) {
	iss := newTestIssuer(t, base)
	token, err := iss.Sign(Session{Username: "Bis", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	iss.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := iss.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: expected ErrInvalidToken, got %v", err)
	}

	other := newTestIssuer(t, base)
	other.secret = []byte("other-secret")
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: expected ErrInvalidToken, got %v", err)
	}
	if _, err := iss.Parse(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: expected ErrInvalidToken, got %v", err)
	}
	if _, err := iss.Sign(Session{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank username: expected ErrInvalidInput, got %v", err)
	}
}

func TestFileSessionStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session")
	store := NewFileSessionStore(path, newTestIssuer(t, base))

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := store.Save(ctx, NewSession(User{Username: "Raja", Role: RoleStaffBasic}, base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
	s, err := store.Load(ctx)
	if err != nil || s.Username != "Raja" {
		t.Fatalf("Load: %v %+v", err, s)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}
