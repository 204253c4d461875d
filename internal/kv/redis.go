package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "actionplus:"

var _ Store = (*RedisStore)(nil)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps blobs as plain Redis strings under a common prefix.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis connects and pings the server with a short timeout.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kv: redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client; Close closes it.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
