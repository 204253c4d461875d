package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"actionplus.app/internal/ids"
	"actionplus.app/internal/kv"
	"actionplus.app/internal/obs"
)

const systemActor = "system"

// Store owns the persisted ledger. Append and the prune it triggers run under
// one lock so the retention and cap bounds hold for every saved ledger.
type Store struct {
	kv  kv.Store
	log logrus.FieldLogger
	now func() time.Time
	mu  sync.Mutex
}

// Option configures Store.
type Option func(*Store)

// WithLogger overrides the logger that receives swallowed write failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewStore constructs a Store over the given blob store.
func NewStore(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:  store,
		log: obs.Logger(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records ev and returns the stored entry. Persistence failures are
// logged and counted but never returned: the caller's workflow has already
// succeeded.
func (s *Store) Append(ctx context.Context, ev Event) LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := LogEntry{
		ID:         ids.NewAt(now),
		Timestamp:  now,
		Actor:      strings.TrimSpace(ev.Actor),
		Action:     strings.TrimSpace(ev.Action),
		TargetType: ev.TargetType,
		TargetID:   ev.TargetID,
		Summary:    ev.Summary,
		Meta:       copyMeta(ev.Meta),
	}
	if entry.Actor == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			entry.Actor = actor
		} else {
			entry.Actor = systemActor
		}
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		if entry.Meta == nil {
			entry.Meta = map[string]any{}
		}
		entry.Meta["request_id"] = rid
	}

	ledger, err := s.load(ctx)
	if err != nil {
		// Saving now would replace a ledger that may still exist.
		obs.AuditWriteFailures.Inc()
		s.log.WithError(err).WithField("action", entry.Action).Warn("audit ledger read failed, entry not saved")
		return entry
	}
	before := len(ledger) + 1
	ledger = Prune(append(ledger, entry), now)
	if removed := before - len(ledger); removed > 0 {
		obs.AuditPruned.Add(float64(removed))
	}
	obs.AuditAppended.Inc()

	if err := kv.SaveJSON(ctx, s.kv, kv.KeyAuditLog, ledger); err != nil {
		obs.AuditWriteFailures.Inc()
		s.log.WithError(err).WithField("action", entry.Action).Warn("audit write failed")
	}
	return entry
}

// Entries returns the ledger in insertion order.
func (s *Store) Entries(ctx context.Context) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, err := s.load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("audit ledger read failed")
	}
	return ledger
}

// Query runs q against the current ledger.
func (s *Store) Query(ctx context.Context, q LogQuery) Result {
	return Query(s.Entries(ctx), q, s.now())
}

// Export renders every entry matching q, ignoring pagination.
func (s *Store) Export(ctx context.Context, q LogQuery) (string, error) {
	return ExportCSV(Filter(s.Entries(ctx), q, s.now()))
}

// Filters returns the actor and action values present in the ledger, for
// building filter choices.
func (s *Store) Filters(ctx context.Context) Filters {
	ledger := s.Entries(ctx)
	return Filters{Actors: Actors(ledger), Actions: Actions(ledger)}
}

// load reads the ledger. A missing or corrupt blob is an empty ledger; any
// other read error is returned alongside an empty ledger.
func (s *Store) load(ctx context.Context) ([]LogEntry, error) {
	var ledger []LogEntry
	err := kv.LoadJSON(ctx, s.kv, kv.KeyAuditLog, &ledger)
	switch {
	case err == nil:
		return ledger, nil
	case errors.Is(err, kv.ErrNotFound):
	case errors.Is(err, kv.ErrCorrupt):
		s.log.WithError(err).Warn("audit ledger corrupt, starting empty")
	default:
		return []LogEntry{}, err
	}
	return []LogEntry{}, nil
}

func copyMeta(meta map[string]any) map[string]any {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
