package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const defaultMigrationsTable = "schema_migrations"

//go:embed sql/*.sql
var embedded embed.FS

// Embedded returns the migrations shipped with the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Manager applies *.up.sql / *.down.sql pairs from an fs.FS.
type Manager struct {
	db              *sql.DB
	files           fs.FS
	migrationsTable string
	now             func() time.Time
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the default migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithClock overrides the applied_at time source.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager. A nil files argument means Embedded().
func NewManager(db *sql.DB, files fs.FS, opts ...Option) *Manager {
	if files == nil {
		files = Embedded()
	}
	m := &Manager{
		db:              db,
		files:           files,
		migrationsTable: defaultMigrationsTable,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies all pending migrations in name order.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	executed, err := m.listExecuted(ctx)
	if err != nil {
		return err
	}
	names, err := collect(m.files, ".up.sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		if executed[name] {
			continue
		}
		if err := m.exec(ctx, name); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := m.db.ExecContext(ctx,
			fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, m.migrationsTable),
			name, m.now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	executed, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(executed) == 0 {
		return errors.New("no migrations applied")
	}
	last := executed[len(executed)-1]
	down := strings.TrimSuffix(last, ".up.sql") + ".down.sql"
	if _, err := fs.Stat(m.files, down); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.exec(ctx, down); err != nil {
		return fmt.Errorf("rollback migration %s: %w", last, err)
	}
	_, err = m.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where name = $1`, m.migrationsTable), last)
	return err
}

// Status returns applied migrations, oldest first.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name from %s order by applied_at asc, name asc`, m.migrationsTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res = append(res, name)
	}
	return res, rows.Err()
}

func (m *Manager) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			name text primary key,
			applied_at timestamptz not null default now()
		);`, m.migrationsTable))
	return err
}

func (m *Manager) listExecuted(ctx context.Context) (map[string]bool, error) {
	names, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[string]bool, len(names))
	for _, n := range names {
		result[n] = true
	}
	return result, nil
}

func (m *Manager) exec(ctx context.Context, name string) error {
	raw, err := fs.ReadFile(m.files, name)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func collect(files fs.FS, suffix string) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, path.Base(e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements naively splits SQL by semicolon, ignoring semicolons inside quotes.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	inString := false
	for _, r := range sql {
		current.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
