package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

func (c *Config) validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}

	if strings.TrimSpace(c.SessionFile) == "" {
		return fmt.Errorf("session_file is required")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q is not a valid level", c.LogLevel)
	}

	return nil
}

func (c *Config) validateStore() error {
	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("data_dir is required for the file store")
		}
	case StorePostgres:
		if c.PGDSN.Value() == "" {
			return fmt.Errorf("pg_dsn is required for the postgres store")
		}
		u, err := url.Parse(c.PGDSN.Value())
		if err != nil {
			return fmt.Errorf("pg_dsn is not a valid URL: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("pg_dsn scheme must be postgres:// or postgresql://")
		}
		if u.Hostname() == "" {
			return fmt.Errorf("pg_dsn must include a host")
		}
	case StoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("redis_addr is required for the redis store")
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("redis_db must be between 0 and 15")
		}
	default:
		return fmt.Errorf("store must be one of memory, file, postgres, redis; got %q", c.Store)
	}
	return nil
}
