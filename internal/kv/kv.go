// Package kv is the persistence shim: every collection is stored as one JSON
// document under a fixed key.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys.
const (
	KeyUsers    = "users"
	KeyAuditLog = "audit_log"
	KeyMembers  = "members"
	KeySettings = "settings"
)

var (
	ErrNotFound = errors.New("kv: key not found")
	ErrCorrupt  = errors.New("kv: corrupt value")
)

// Store reads and writes opaque blobs by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// LoadJSON decodes the value stored under key into v. It returns ErrNotFound
// when the key is absent and ErrCorrupt when the blob cannot be decoded.
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it under key, replacing any previous value.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Put(ctx, key, raw)
}
