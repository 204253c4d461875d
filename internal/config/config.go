// Package config resolves gymadmin settings from GYMADMIN_* environment
// variables over an optional YAML file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Secret keeps credentials out of logs and encoded output.
type Secret string

func (s Secret) String() string               { return "[REDACTED]" }
func (s Secret) GoString() string             { return "[REDACTED]" }
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }
func (s Secret) Value() string                { return string(s) }

// Config is the resolved configuration.
type Config struct {
	Home          string
	Store         string
	DataDir       string
	PGDSN         Secret
	RedisAddr     string
	RedisPassword Secret
	RedisDB       int
	SessionSecret Secret
	SessionFile   string
	SessionTTL    time.Duration
	LogLevel      string
	MetricsFile   string
}

// fileConfig mirrors config.yaml; empty values fall through to defaults.
type fileConfig struct {
	Store         string `yaml:"store"`
	DataDir       string `yaml:"data_dir"`
	PGDSN         string `yaml:"pg_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       string `yaml:"redis_db"`
	SessionSecret string `yaml:"session_secret"`
	SessionFile   string `yaml:"session_file"`
	SessionTTL    string `yaml:"session_ttl"`
	LogLevel      string `yaml:"log_level"`
	MetricsFile   string `yaml:"metrics_file"`
}

// Load reads GYMADMIN_CONFIG (default <home>/config.yaml) when present and
// overlays the environment. Home is GYMADMIN_HOME or ~/.gymadmin.
func Load() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	path := envOrDefault("GYMADMIN_CONFIG", filepath.Join(home, "config.yaml"))

	var fc fileConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := &Config{
		Home:          home,
		Store:         strings.ToLower(pick("GYMADMIN_STORE", fc.Store, StoreFile)),
		DataDir:       pick("GYMADMIN_DATA_DIR", fc.DataDir, filepath.Join(home, "data")),
		PGDSN:         Secret(pick("GYMADMIN_PG_DSN", fc.PGDSN, "")),
		RedisAddr:     pick("GYMADMIN_REDIS_ADDR", fc.RedisAddr, "127.0.0.1:6379"),
		RedisPassword: Secret(pick("GYMADMIN_REDIS_PASSWORD", fc.RedisPassword, "")),
		SessionSecret: Secret(pick("GYMADMIN_SESSION_SECRET", fc.SessionSecret, "")),
		SessionFile:   pick("GYMADMIN_SESSION_FILE", fc.SessionFile, filepath.Join(home, "session")),
		LogLevel:      pick("GYMADMIN_LOG_LEVEL", fc.LogLevel, "warn"),
		MetricsFile:   pick("GYMADMIN_METRICS_FILE", fc.MetricsFile, ""),
	}

	db, err := strconv.Atoi(pick("GYMADMIN_REDIS_DB", fc.RedisDB, "0"))
	if err != nil {
		return nil, fmt.Errorf("redis_db must be an integer: %w", err)
	}
	cfg.RedisDB = db

	ttl, err := time.ParseDuration(pick("GYMADMIN_SESSION_TTL", fc.SessionTTL, "12h"))
	if err != nil {
		return nil, fmt.Errorf("session_ttl is not a duration: %w", err)
	}
	cfg.SessionTTL = ttl

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// EnsureSessionSecret returns the configured secret, or reads and if needed
// creates a random one in <home>/session.key.
func (c *Config) EnsureSessionSecret() (Secret, error) {
	if c.SessionSecret.Value() != "" {
		return c.SessionSecret, nil
	}
	path := filepath.Join(c.Home, "session.key")
	raw, err := os.ReadFile(path)
	if err == nil && strings.TrimSpace(string(raw)) != "" {
		c.SessionSecret = Secret(strings.TrimSpace(string(raw)))
		return c.SessionSecret, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read session key: %w", err)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	key := hex.EncodeToString(buf)
	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", c.Home, err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write session key: %w", err)
	}
	c.SessionSecret = Secret(key)
	return c.SessionSecret, nil
}

func homeDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("GYMADMIN_HOME")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gymadmin"), nil
}

// pick prefers the environment, then the file, then fallback.
func pick(env, fromFile, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fromFile); v != "" {
		return v
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
