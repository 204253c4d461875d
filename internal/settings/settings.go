// Package settings owns the configurable vocabularies and message templates.
package settings

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"actionplus.app/internal/audit"
	"actionplus.app/internal/kv"
	"actionplus.app/internal/members"
	"actionplus.app/internal/obs"
)

// GymName is exposed to templates as {{ gym }}.
const GymName = "Action Plus Gym"

// Vocabulary names.
const (
	Plans          = "plans"
	Genders        = "genders"
	PaymentMethods = "paymentMethods"
	HoldDurations  = "holdDurations"
)

var ErrInvalidInput = errors.New("settings: invalid input")

//go:embed defaults.yaml
var defaultsYAML []byte

// Settings is the persisted document.
type Settings struct {
	Vocabularies map[string][]string `yaml:"vocabularies" json:"vocabularies"`
	Templates    map[string]string   `yaml:"templates" json:"templates"`
}

// Defaults parses the embedded defaults.
func Defaults() (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(defaultsYAML, &s); err != nil {
		return Settings{}, fmt.Errorf("parse default settings: %w", err)
	}
	if s.Vocabularies == nil {
		s.Vocabularies = map[string][]string{}
	}
	if s.Templates == nil {
		s.Templates = map[string]string{}
	}
	return s, nil
}

// TemplateNames lists template names in sorted order.
func (s Settings) TemplateNames() []string {
	out := make([]string, 0, len(s.Templates))
	for k := range s.Templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type Auditor interface {
	Append(ctx context.Context, ev audit.Event) audit.LogEntry
}

// Service reads and edits settings stored under kv.KeySettings. Stored keys
// override the defaults one entry at a time.
type Service struct {
	store   kv.Store
	auditor Auditor
	log     logrus.FieldLogger
	mu      sync.Mutex
}

type Option func(*Service)

func WithAuditor(a Auditor) Option { return func(s *Service) { s.auditor = a } }

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(store kv.Store, opts ...Option) *Service {
	s := &Service{store: store, log: obs.Logger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the defaults merged with whatever is stored.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (Settings, error) {
	out, err := Defaults()
	if err != nil {
		return Settings{}, err
	}
	var stored Settings
	err = kv.LoadJSON(ctx, s.store, kv.KeySettings, &stored)
	switch {
	case err == nil:
	case errors.Is(err, kv.ErrNotFound):
		return out, nil
	case errors.Is(err, kv.ErrCorrupt):
		s.log.WithError(err).Warn("settings unreadable, using defaults")
		return out, nil
	default:
		return Settings{}, err
	}
	for k, v := range stored.Vocabularies {
		out.Vocabularies[k] = v
	}
	for k, v := range stored.Templates {
		out.Templates[k] = v
	}
	return out, nil
}

// Vocabulary returns the named option list; an unknown name or a read error
// gives an empty list.
func (s *Service) Vocabulary(ctx context.Context, name string) []string {
	st, err := s.Load(ctx)
	if err != nil {
		s.log.WithError(err).WithField("vocabulary", name).Warn("settings read failed")
		return []string{}
	}
	values, ok := st.Vocabularies[name]
	if !ok {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Template returns the named template body, or "" when absent.
func (s *Service) Template(ctx context.Context, name string) string {
	st, err := s.Load(ctx)
	if err != nil {
		s.log.WithError(err).WithField("template", name).Warn("settings read failed")
		return ""
	}
	return st.Templates[name]
}

// SetVocabulary replaces a vocabulary. Blank and repeated values are dropped.
func (s *Service) SetVocabulary(ctx context.Context, name string, values []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: vocabulary name is required", ErrInvalidInput)
	}
	clean := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		clean = append(clean, v)
	}
	return s.update(ctx, func(st *Settings) { st.Vocabularies[name] = clean }, audit.Event{
		Action:     "settings.update",
		TargetType: "vocabulary",
		TargetID:   name,
		Summary:    fmt.Sprintf("Set %s to %s", name, strings.Join(clean, ", ")),
	})
}

// SetTemplate replaces a template after checking that it compiles.
func (s *Service) SetTemplate(ctx context.Context, name, body string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if _, err := compile(body); err != nil {
		return fmt.Errorf("%w: template %s: %v", ErrInvalidInput, name, err)
	}
	return s.update(ctx, func(st *Settings) { st.Templates[name] = body }, audit.Event{
		Action:     "settings.update",
		TargetType: "template",
		TargetID:   name,
		Summary:    fmt.Sprintf("Updated %s template", name),
	})
}

func (s *Service) update(ctx context.Context, apply func(*Settings), ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	apply(&st)
	if err := kv.SaveJSON(ctx, s.store, kv.KeySettings, st); err != nil {
		return err
	}
	if s.auditor != nil {
		s.auditor.Append(ctx, ev)
	}
	return nil
}

// Render fills the named template with m.
func (s *Service) Render(ctx context.Context, name string, m members.Member) (string, error) {
	body := s.Template(ctx, name)
	if body == "" {
		return "", fmt.Errorf("%w: no template named %q", ErrInvalidInput, name)
	}
	return RenderTemplate(body, m)
}

// RenderTemplate renders body without HTML escaping; messages are plain text.
func RenderTemplate(body string, m members.Member) (string, error) {
	tpl, err := compile(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out, err := tpl.Execute(pongo2.Context{
		"gym":           GymName,
		"id":            m.ID,
		"name":          m.Name,
		"mobile":        m.Mobile,
		"plan":          m.Plan,
		"amount":        members.FormatAmount(m.Amount),
		"joinDate":      m.JoinDate,
		"billingDate":   m.BillingDate,
		"status":        string(m.Status),
		"holdDuration":  m.HoldDuration,
		"paymentMethod": m.PaymentMethod,
		"payMonth":      m.PayMonth,
	})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func compile(body string) (*pongo2.Template, error) {
	return pongo2.FromString("{% autoescape off %}" + body + "{% endautoescape %}")
}

// PaymentMonths lists Month-YYYY for every month of now's year and the next.
func PaymentMonths(now time.Time) []string {
	out := make([]string, 0, 24)
	for _, year := range []int{now.Year(), now.Year() + 1} {
		for m := time.January; m <= time.December; m++ {
			out = append(out, fmt.Sprintf("%s-%d", m, year))
		}
	}
	return out
}
