package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"officeflow/adapter/out/memory"
	"officeflow/core/domain"
	"officeflow/core/service/catalog"
	"officeflow/core/service/classification"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) CompleteWithSystem(context.Context, string, string) (string, error) {
	f.calls++
	return f.response, f.err
}

type staticCatalog struct {
	cat *catalog.Catalog
	err error
}

func (s staticCatalog) Load(context.Context) (*catalog.Catalog, error) { return s.cat, s.err }

type failingTasks struct{ *memory.TaskRepository }

func (failingTasks) Create(context.Context, *domain.Task) error { return errors.New("tasks table locked") }

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	service *Service
	access  domain.RequestType
}

func newFixture(t *testing.T, gen *fakeGenerator, mutate func(*Deps)) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	access := domain.RequestType{
		Name: "Access Request", Category: "IT", Keywords: []string{"vpn"},
		RoutingTeam: "IT Security", SLAHours: 8, IsActive: true,
		AutoReplyTemplate: "Hi {sender}, we logged \"{subject}\".",
	}
	require.NoError(t, store.RequestTypes().Upsert(ctx, &access))
	cat := catalog.New([]domain.RequestType{access})

	deps := Deps{
		Emails:          store.Emails(),
		Classifications: store.Classifications(),
		Assignments:     store.Assignments(),
		Tasks:           store.Tasks(),
		Meetings:        store.Meetings(),
		AutoReplies:     store.AutoReplies(),
		Catalog:         staticCatalog{cat: cat},
		Classifier:      classification.NewClassifier(gen, classification.Config{}, zerolog.Nop()),
	}
	if mutate != nil {
		mutate(&deps)
	}
	svc := NewService(deps, Config{AutoReplyEnabled: true, Now: func() time.Time { return fixedNow }}, zerolog.Nop())
	return &fixture{store: store, service: svc, access: access}
}

func (f *fixture) storeEmail(t *testing.T, subject, body string) *domain.Email {
	t.Helper()
	e := &domain.Email{
		UserID:     uuid.New(),
		ExternalID: uuid.NewString(),
		Provider:   domain.ProviderGmail,
		Sender:     "jane@acme.test",
		Subject:    subject,
		Body:       body,
		ReceivedAt: fixedNow,
	}
	created, err := f.store.Emails().Create(context.Background(), e)
	require.NoError(t, err)
	require.True(t, created)
	return e
}

func TestProcessAccessRequest(t *testing.T) {
	gen := &fakeGenerator{response: `{"requestType":"Access Request","urgencyLevel":"high","summary":"VPN access needed","suggestedTeam":"IT","containsTask":true,"taskDescription":"Provision VPN access for Jane"}`}
	f := newFixture(t, gen, nil)
	email := f.storeEmail(t, "Need VPN access", "This is urgent, I am blocked.")

	outcome, err := f.service.Process(context.Background(), email.UserID, email.ID)
	require.NoError(t, err)

	assignments := f.store.Assignments().All()
	require.Len(t, assignments, 1)
	assert.Equal(t, "IT Security", assignments[0].TeamName)
	assert.Equal(t, fixedNow, assignments[0].AssignedAt)

	tasks := f.store.Tasks().All()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskPriorityHigh, tasks[0].Priority)
	assert.Equal(t, domain.TaskStatusPending, tasks[0].Status)
	assert.Equal(t, "Provision VPN access for Jane", tasks[0].Title)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, fixedNow.Add(8*time.Hour), *tasks[0].DueDate)

	classifications := f.store.Classifications().All()
	require.Len(t, classifications, 1)
	cls := classifications[0]
	require.NotNil(t, cls.RequestTypeID)
	assert.Equal(t, f.access.ID, *cls.RequestTypeID)
	assert.Equal(t, domain.UrgencyHigh, cls.Urgency)
	assert.True(t, cls.AutoReplySent)

	replies := f.store.AutoReplies().All()
	require.Len(t, replies, 1)
	assert.Equal(t, "jane@acme.test", replies[0].Recipient)
	assert.Equal(t, `Hi jane@acme.test, we logged "Need VPN access".`, replies[0].ReplyText)

	stored, err := f.store.Emails().GetByID(context.Background(), email.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsProcessed)
	assert.True(t, stored.HasTask)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, "VPN access needed", *stored.Summary)

	assert.True(t, outcome.TaskCreated)
	assert.False(t, outcome.MeetingCreated)
	assert.Empty(t, outcome.FailedSteps)
}

func TestProcessIsOncePerEmail(t *testing.T) {
	f := newFixture(t, &fakeGenerator{response: `{"requestType":"General"}`}, nil)
	email := f.storeEmail(t, "Hello", "Just saying hi")

	_, err := f.service.Process(context.Background(), email.UserID, email.ID)
	require.NoError(t, err)

	_, err = f.service.Process(context.Background(), email.UserID, email.ID)
	assert.True(t, IsAlreadyProcessed(err), "expected already processed, got %v", err)
	assert.Len(t, f.store.Classifications().All(), 1)
	assert.Len(t, f.store.Assignments().All(), 1)
}

func TestProcessUnknownEmail(t *testing.T) {
	f := newFixture(t, &fakeGenerator{}, nil)
	_, err := f.service.Process(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email not found")
}

func TestProcessOtherUsersEmail(t *testing.T) {
	gen := &fakeGenerator{response: `{"requestType":"General"}`}
	f := newFixture(t, gen, nil)
	email := f.storeEmail(t, "Payroll", "My payslip is missing")

	_, err := f.service.Process(context.Background(), uuid.New(), email.ID)
	require.Error(t, err)
	assert.Equal(t, 404, apperr.GetHTTPStatus(err))
	assert.Zero(t, gen.calls, "no classification for a foreign email")
	assert.Empty(t, f.store.Classifications().All())
	assert.Empty(t, f.store.AutoReplies().All())
}

func TestProcessZoomLinkSurvivesLLMFailure(t *testing.T) {
	f := newFixture(t, &fakeGenerator{err: context.DeadlineExceeded}, nil)
	email := f.storeEmail(t, "Weekly sync", "Join here: https://acme.zoom.us/j/9876543210")

	outcome, err := f.service.Process(context.Background(), email.UserID, email.ID)
	require.NoError(t, err)

	assert.True(t, outcome.Result.Fallback)
	cls := f.store.Classifications().All()
	require.Len(t, cls, 1)
	assert.Equal(t, domain.UrgencyMedium, cls[0].Urgency)
	assert.Nil(t, cls[0].RequestTypeID)
	assert.Equal(t, "General", cls[0].RoutingTeam)

	meetings := f.store.Meetings().All()
	require.Len(t, meetings, 1)
	m := meetings[0]
	assert.Equal(t, "Weekly sync", m.Title)
	require.NotNil(t, m.JoinURL)
	assert.Equal(t, "https://acme.zoom.us/j/9876543210", *m.JoinURL)
	assert.Equal(t, fixedNow, m.StartTime)
	assert.Equal(t, fixedNow.Add(60*time.Minute), m.EndTime)
	assert.Equal(t, domain.MeetingAttendees{Source: "jane@acme.test", Type: domain.MeetingZoom}, m.Attendees)
	assert.Equal(t, email.ExternalID, m.ExternalRef)

	replies := f.store.AutoReplies().All()
	require.Len(t, replies, 1)
	assert.Equal(t, DefaultReply("Weekly sync"), replies[0].ReplyText)
}

func TestRouteContinuesAfterTaskFailure(t *testing.T) {
	gen := &fakeGenerator{response: `{"requestType":"Access Request","urgencyLevel":"critical","containsTask":true,"taskDescription":"Reset token","isMeetingInvite":true,"meetingDateTime":"2026-03-03T15:00:00Z"}`}
	f := newFixture(t, gen, func(d *Deps) {
		d.Tasks = failingTasks{}
	})
	email := f.storeEmail(t, "Token reset", "please")

	outcome, err := f.service.Process(context.Background(), email.UserID, email.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"task"}, outcome.FailedSteps)
	assert.False(t, outcome.TaskCreated)
	assert.NotNil(t, outcome.AssignmentID)
	assert.True(t, outcome.MeetingCreated)
	assert.True(t, outcome.AutoReplyCreated)

	meetings := f.store.Meetings().All()
	require.Len(t, meetings, 1)
	assert.Equal(t, time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC), meetings[0].StartTime)
	assert.Equal(t, domain.MeetingInvite, meetings[0].Provider)
	assert.Nil(t, meetings[0].JoinURL)
}

func TestProcessWithoutCatalog(t *testing.T) {
	gen := &fakeGenerator{response: `{"requestType":"Access Request","suggestedTeam":"IT"}`}
	f := newFixture(t, gen, func(d *Deps) {
		d.Catalog = staticCatalog{err: errors.New("db down")}
	})
	email := f.storeEmail(t, "VPN", "")

	outcome, err := f.service.Process(context.Background(), email.UserID, email.ID)
	require.NoError(t, err)
	assert.Equal(t, "IT", outcome.Team)
	assert.Nil(t, outcome.Classification.RequestTypeID)
}

func TestSelectTeam(t *testing.T) {
	matched := &domain.RequestType{Name: "HR Query", RoutingTeam: "HR"}
	tests := []struct {
		name    string
		matched *domain.RequestType
		res     classification.Result
		want    string
	}{
		{"catalog wins", matched, classification.Result{SuggestedTeam: "Finance"}, "HR"},
		{"suggested when unmatched", nil, classification.Result{SuggestedTeam: "Finance"}, "Finance"},
		{"default", nil, classification.Result{SuggestedTeam: "  "}, "General"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectTeam(tt.matched, tt.res); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseMeetingTime(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2026-03-03T15:00:00Z", true},
		{"2026-03-03T15:00:00+02:00", true},
		{"2026-03-03 15:00", true},
		{"next tuesday", false},
		{"null", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if _, ok := parseMeetingTime(tt.input); ok != tt.ok {
				t.Errorf("expected ok=%v for %q", tt.ok, tt.input)
			}
		})
	}
}
