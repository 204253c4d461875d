package settings

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionplus.app/internal/audit"
	"actionplus.app/internal/kv"
	"actionplus.app/internal/members"
)

type recorder struct{ events []audit.Event }

func (r *recorder) Append(_ context.Context, ev audit.Event) audit.LogEntry {
	r.events = append(r.events, ev)
	return audit.LogEntry{Action: ev.Action}
}

func newTestService(store kv.Store) (*Service, *recorder) {
	rec := &recorder{}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewService(store, WithAuditor(rec), WithLogger(l)), rec
}

func TestDefaults(t *testing.T) {
	d, err := Defaults()
	require.NoError(t, err)
	assert.Contains(t, d.Vocabularies[Plans], "Monthly")
	assert.Contains(t, d.Vocabularies[PaymentMethods], "UPI")
	assert.Equal(t, []string{"hold", "renewal", "welcome"}, d.TemplateNames())
}

func TestVocabularyAndTemplateDegrade(t *testing.T) {
	svc, _ := newTestService(kv.NewMemoryStore())
	ctx := context.Background()
	assert.Equal(t, []string{}, svc.Vocabulary(ctx, "lockers"))
	assert.Equal(t, "", svc.Template(ctx, "birthday"))
	assert.NotEmpty(t, svc.Vocabulary(ctx, Genders))
}

func TestCorruptSettingsUseDefaults(t *testing.T) {
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Put(context.Background(), kv.KeySettings, []byte("nope")))
	svc, _ := newTestService(mem)
	assert.Contains(t, svc.Vocabulary(context.Background(), Plans), "Yearly")
}

func TestSetVocabulary(t *testing.T) {
	mem := kv.NewMemoryStore()
	svc, rec := newTestService(mem)
	ctx := context.Background()

	require.NoError(t, svc.SetVocabulary(ctx, Plans, []string{" Monthly ", "", "Student", "Monthly"}))
	assert.Equal(t, []string{"Monthly", "Student"}, svc.Vocabulary(ctx, Plans))
	assert.NotEmpty(t, svc.Vocabulary(ctx, Genders), "other vocabularies keep their defaults")
	require.Len(t, rec.events, 1)
	assert.Equal(t, "settings.update", rec.events[0].Action)
	assert.Equal(t, Plans, rec.events[0].TargetID)

	reopened, _ := newTestService(mem)
	assert.Equal(t, []string{"Monthly", "Student"}, reopened.Vocabulary(ctx, Plans))

	assert.ErrorIs(t, svc.SetVocabulary(ctx, " ", nil), ErrInvalidInput)
}

func TestSetTemplateAndRender(t *testing.T) {
	svc, rec := newTestService(kv.NewMemoryStore())
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetTemplate(ctx, "bad", "{% if %}"), ErrInvalidInput)
	assert.Empty(t, rec.events)

	require.NoError(t, svc.SetTemplate(ctx, "birthday", "Happy birthday {{ name }} & team! Plan: {{ plan }}, due {{ amount }}"))
	out, err := svc.Render(ctx, "birthday", members.Member{Name: "Asha", Plan: "Gold", Amount: 150050})
	require.NoError(t, err)
	assert.Equal(t, "Happy birthday Asha & team! Plan: Gold, due 1500.50", out)

	_, err = svc.Render(ctx, "missing", members.Member{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRenderDefaultWelcome(t *testing.T) {
	svc, _ := newTestService(kv.NewMemoryStore())
	out, err := svc.Render(context.Background(), "welcome", members.Member{ID: "APG-1/24", Name: "Ravi", Plan: "Monthly", BillingDate: "2024-02-10"})
	require.NoError(t, err)
	assert.Contains(t, out, "Hi Ravi, welcome to Action Plus Gym!")
	assert.Contains(t, out, "APG-1/24")
	assert.Contains(t, out, "2024-02-10")
}

func TestPaymentMonths(t *testing.T) {
	got := PaymentMonths(time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC))
	require.Len(t, got, 24)
	assert.Equal(t, "January-2024", got[0])
	assert.Equal(t, "December-2024", got[11])
	assert.Equal(t, "January-2025", got[12])
	assert.Equal(t, "December-2025", got[23])
}
