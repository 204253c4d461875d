package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ Store = (*PGStore)(nil)

// PGStore keeps blobs in the kv_blobs table created by internal/migrate.
type PGStore struct {
	db *sql.DB
}

// OpenPG opens a pgx-backed pool. The pool is small: there is a single writer.
func OpenPG(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PGStore{db: db}, nil
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `select value from kv_blobs where key=$1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *PGStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		insert into kv_blobs(key, value, updated_at)
		values ($1, $2, now())
		on conflict (key) do update
		set value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `delete from kv_blobs where key=$1`, key)
	return err
}

func (s *PGStore) Close() error { return s.db.Close() }
