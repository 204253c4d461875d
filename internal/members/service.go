package members

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"actionplus.app/internal/audit"
	"actionplus.app/internal/kv"
	"actionplus.app/internal/obs"
)

// Repository loads and saves the whole register.
type Repository interface {
	Load(ctx context.Context) ([]Member, error)
	Save(ctx context.Context, members []Member) error
}

// Auditor records member events.
type Auditor interface {
	Append(ctx context.Context, ev audit.Event) audit.LogEntry
}

var _ Repository = (*KVRepository)(nil)

// KVRepository keeps the register under kv.KeyMembers.
type KVRepository struct {
	store kv.Store
	log   logrus.FieldLogger
}

func NewKVRepository(store kv.Store, log logrus.FieldLogger) *KVRepository {
	if log == nil {
		log = obs.Logger()
	}
	return &KVRepository{store: store, log: log}
}

func (r *KVRepository) Load(ctx context.Context) ([]Member, error) {
	var out []Member
	err := kv.LoadJSON(ctx, r.store, kv.KeyMembers, &out)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, kv.ErrNotFound):
		return []Member{}, nil
	case errors.Is(err, kv.ErrCorrupt):
		r.log.WithError(err).Warn("member register unreadable, starting empty")
		return []Member{}, nil
	default:
		return nil, err
	}
}

func (r *KVRepository) Save(ctx context.Context, members []Member) error {
	return kv.SaveJSON(ctx, r.store, kv.KeyMembers, members)
}

// Service validates and persists members.
type Service struct {
	repo    Repository
	auditor Auditor
	now     func() time.Time
	mu      sync.Mutex
}

type Option func(*Service)

func WithAuditor(a Auditor) Option { return func(s *Service) { s.auditor = a } }

// WithClock sets the clock used for the year suffix of new ids.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Load(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Member{}, err
	}
	if i := indexOf(list, id); i >= 0 {
		return list[i], nil
	}
	return Member{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save creates the member when in.ID is empty and replaces it by id otherwise.
func (s *Service) Save(ctx context.Context, in Input) (Member, error) {
	m, err := build(in)
	if err != nil {
		return Member{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.repo.Load(ctx)
	if err != nil {
		return Member{}, err
	}

	now := s.now().UTC()
	m.UpdatedAt = now
	action := "member.update"
	if m.ID == "" {
		action = "member.create"
		for _, other := range list {
			if m.FormNumber != "" && other.FormNumber == m.FormNumber {
				return Member{}, fmt.Errorf("%w: form number %s already exists", ErrDuplicate, m.FormNumber)
			}
			if other.Mobile == m.Mobile {
				return Member{}, fmt.Errorf("%w: mobile %s already exists", ErrDuplicate, m.Mobile)
			}
		}
		id, err := s.nextID(list, m.FormNumber)
		if err != nil {
			return Member{}, err
		}
		m.ID = id
		m.CreatedAt = now
		list = append(list, m)
	} else {
		i := indexOf(list, m.ID)
		if i < 0 {
			return Member{}, fmt.Errorf("%w: %s", ErrNotFound, m.ID)
		}
		m.CreatedAt = list[i].CreatedAt
		list[i] = m
	}

	if err := s.repo.Save(ctx, list); err != nil {
		return Member{}, err
	}
	s.record(ctx, audit.Event{
		Action:     action,
		TargetType: "member",
		TargetID:   m.ID,
		Summary:    fmt.Sprintf("%s %s (%s, %s)", verb(action), m.Name, m.Plan, m.Status),
		Meta:       map[string]any{"status": string(m.Status), "plan": m.Plan, "amount": m.Amount},
	})
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(list, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	gone := list[i]
	list = append(list[:i], list[i+1:]...)
	if err := s.repo.Save(ctx, list); err != nil {
		return err
	}
	s.record(ctx, audit.Event{
		Action:     "member.delete",
		TargetType: "member",
		TargetID:   gone.ID,
		Summary:    fmt.Sprintf("Deleted %s", gone.Name),
	})
	return nil
}

// nextID is APG-<form number>/<yy>. Without a form number it counts up from
// register size + 1 to the first id not taken, since deletes leave gaps.
func (s *Service) nextID(list []Member, formNumber string) (string, error) {
	yy := s.now().Year() % 100
	if formNumber != "" {
		id := fmt.Sprintf("APG-%s/%02d", formNumber, yy)
		if indexOf(list, id) >= 0 {
			return "", fmt.Errorf("%w: id %s already exists", ErrDuplicate, id)
		}
		return id, nil
	}
	for n := len(list) + 1; ; n++ {
		id := fmt.Sprintf("APG-%d/%02d", n, yy)
		if indexOf(list, id) < 0 {
			return id, nil
		}
	}
}

func (s *Service) record(ctx context.Context, ev audit.Event) {
	if s.auditor != nil {
		s.auditor.Append(ctx, ev)
	}
}

func indexOf(list []Member, id string) int {
	for i, m := range list {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func verb(action string) string {
	if action == "member.create" {
		return "Created"
	}
	return "Updated"
}
