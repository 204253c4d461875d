// Package app wires configuration, storage and the domain services together.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"actionplus.app/internal/access"
	"actionplus.app/internal/audit"
	"actionplus.app/internal/config"
	"actionplus.app/internal/kv"
	"actionplus.app/internal/members"
	"actionplus.app/internal/migrate"
	"actionplus.app/internal/obs"
	"actionplus.app/internal/settings"
)

// App is one process worth of services over a single kv backend.
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Store    kv.Store
	Tokens   *access.TokenIssuer
	Sessions access.SessionStore
	Audit    *audit.Store
	Access   *access.Service
	Members  *members.Service
	Settings *settings.Service
}

// New opens the configured backend and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := obs.Logger()
	obs.SetLevel(cfg.LogLevel)

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	secret, err := cfg.EnsureSessionSecret()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	tokens, err := access.NewTokenIssuer(secret.Value(), cfg.SessionTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sessions := access.NewFileSessionStore(cfg.SessionFile, tokens)

	ledger := audit.NewStore(store, audit.WithLogger(log))
	accessSvc, err := access.NewService(
		access.NewKVUserRepository(store, log),
		access.WithSessions(sessions),
		access.WithAuditor(ledger),
		access.WithLogger(log),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Tokens:   tokens,
		Sessions: sessions,
		Audit:    ledger,
		Access:   accessSvc,
		Members:  members.NewService(members.NewKVRepository(store, log), members.WithAuditor(ledger)),
		Settings: settings.NewService(store, settings.WithAuditor(ledger), settings.WithLogger(log)),
	}, nil
}

// OpenStore returns the kv backend named by cfg.Store. The postgres schema is
// migrated on open.
func OpenStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return kv.NewMemoryStore(), nil
	case config.StoreFile:
		return kv.NewFileStore(cfg.DataDir)
	case config.StorePostgres:
		pg, err := kv.OpenPG(cfg.PGDSN.Value())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := migrate.NewManager(pg.DB(), nil).Up(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, nil
	case config.StoreRedis:
		return kv.OpenRedis(ctx, kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword.Value(),
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Session loads the cached session and returns a context that carries it and
// the acting username for audit entries.
func (a *App) Session(ctx context.Context) (context.Context, access.Session, error) {
	s, err := a.Access.CurrentSession(ctx)
	if err != nil {
		return ctx, access.Session{}, err
	}
	users, err := a.Access.Users(ctx)
	if err != nil {
		return ctx, access.Session{}, err
	}
	// Permissions follow the stored user, not the token snapshot.
	found := false
	for _, u := range users {
		if s.Refresh(u) {
			found = true
			break
		}
	}
	if !found {
		_ = a.Sessions.Clear(ctx)
		return ctx, access.Session{}, access.ErrNoSession
	}
	ctx = access.ContextWithSession(ctx, s)
	ctx = audit.WithActor(ctx, s.Username)
	return ctx, s, nil
}

// Close flushes metrics and releases the backend.
func (a *App) Close() error {
	var errs []error
	if err := obs.WriteTextfile(a.Config.MetricsFile); err != nil {
		errs = append(errs, fmt.Errorf("write metrics: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
