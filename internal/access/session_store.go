package access

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SessionStore caches the active session between invocations.
type SessionStore interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// FileSessionStore keeps a signed session token in a file readable only by its owner.
type FileSessionStore struct {
	path   string
	tokens *TokenIssuer
}

func NewFileSessionStore(path string, tokens *TokenIssuer) *FileSessionStore {
	return &FileSessionStore{path: path, tokens: tokens}
}

func (f *FileSessionStore) Load(_ context.Context) (Session, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return f.tokens.Parse(strings.TrimSpace(string(raw)))
}

func (f *FileSessionStore) Save(_ context.Context, s Session) error {
	token, err := f.tokens.Sign(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return os.WriteFile(f.path, []byte(token+"\n"), 0o600)
}

func (f *FileSessionStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemorySessionStore holds the session in process memory.
type MemorySessionStore struct {
	mu      sync.Mutex
	session *Session
}

func (m *MemorySessionStore) Load(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, ErrNoSession
	}
	return *m.session, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	return nil
}

func (m *MemorySessionStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
