package http

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"officeflow/core/domain"
	"officeflow/core/service/escalation"
	"officeflow/core/service/ingest"
	"officeflow/core/service/routing"
	"officeflow/infra/middleware"
	"officeflow/pkg/apperr"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUser = uuid.MustParse("8f7a3c1e-0000-4000-8000-000000000001")
	testDay  = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
)

type fakePipeline struct {
	stored      []ingest.ManualEmail
	storeResult bool
	ingestErr   error
	processErr  error
	getSnap     *domain.AnalyticsSnapshot
	generated   []time.Time
	statusErr   error
	processedBy []uuid.UUID
}

func (f *fakePipeline) Ingest(_ context.Context, _ uuid.UUID, p domain.Provider) (*ingest.Summary, error) {
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return &ingest.Summary{Fetched: 3, Stored: 2, Skipped: 1, TasksCreated: 2, Emails: []ingest.EmailSummary{}}, nil
}

func (f *fakePipeline) Store(_ context.Context, userID uuid.UUID, in ingest.ManualEmail) (*domain.Email, bool, error) {
	f.stored = append(f.stored, in)
	return &domain.Email{ID: uuid.New(), UserID: userID}, f.storeResult, nil
}

func (f *fakePipeline) Process(_ context.Context, userID, emailID uuid.UUID) (*routing.Outcome, error) {
	f.processedBy = append(f.processedBy, userID)
	if f.processErr != nil {
		return nil, f.processErr
	}
	return &routing.Outcome{
		EmailID:        emailID,
		Classification: &domain.Classification{EmailID: emailID, Urgency: domain.UrgencyHigh},
		Team:           "IT Security",
		TaskCreated:    true,
	}, nil
}

func (f *fakePipeline) Scan(context.Context) (escalation.ScanResult, error) {
	return escalation.ScanResult{Checked: 4, Breached: 1, Escalated: 1, Skipped: 3}, nil
}

func (f *fakePipeline) Generate(_ context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	f.generated = append(f.generated, day)
	return &domain.AnalyticsSnapshot{MetricDate: day, TotalEmails: 5}, nil
}

func (f *fakePipeline) Get(context.Context, time.Time) (*domain.AnalyticsSnapshot, error) {
	return f.getSnap, nil
}

func (f *fakePipeline) Today() time.Time { return testDay }

func (f *fakePipeline) UpdateStatus(_ context.Context, userID, taskID uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &domain.Task{ID: taskID, UserID: userID, Status: status}, nil
}

func (f *fakePipeline) Acknowledge(_ context.Context, id uuid.UUID) (*domain.TeamAssignment, error) {
	return &domain.TeamAssignment{ID: id, Acknowledged: true}, nil
}

func (f *fakePipeline) Resolve(_ context.Context, id uuid.UUID) (*domain.TeamAssignment, error) {
	return nil, apperr.NotFound("assignment")
}

type fakeSummaries struct{}

func (fakeSummaries) Generate(_ context.Context, userID uuid.UUID, day time.Time) (*domain.DailySummary, error) {
	return &domain.DailySummary{UserID: userID, SummaryDate: day, EmailsProcessed: 2}, nil
}

func newTestApp(f *fakePipeline) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(zerolog.Nop()),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		if c.Get("X-Anonymous") == "" {
			c.Locals("user_id", testUser)
		}
		return c.Next()
	})
	NewEmailHandler(f, f).Register(api)
	NewAutomationHandler(f, f, fakeSummaries{}).Register(api)
	NewWorkHandler(f, f).Register(api)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func TestCreateEmail(t *testing.T) {
	f := &fakePipeline{storeResult: true}
	app := newTestApp(f)

	status, body := do(t, app, "POST", "/api/v1/emails", `{"sender":"a@corp.example","subject":"VPN","body":"please","receivedAt":"2026-10-14T08:00:00Z"}`)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["stored"])
	assert.NotEmpty(t, body["emailId"])
	require.Len(t, f.stored, 1)
	assert.Equal(t, time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC), f.stored[0].ReceivedAt.UTC())

	f.storeResult = false
	status, body = do(t, app, "POST", "/api/v1/emails", `{"externalId":"x-1","subject":"dup"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["stored"])

	status, body = do(t, app, "POST", "/api/v1/emails", `{"sender":"a@corp.example"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "body")
}

func TestProcessEmail(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		processErr error
		wantStatus int
	}{
		{"missing id", `{}`, nil, fiber.StatusBadRequest},
		{"bad id", `{"emailId":"abc"}`, nil, fiber.StatusBadRequest},
		{"unknown email", `{"emailId":"` + uuid.NewString() + `"}`, apperr.NotFound("email"), fiber.StatusNotFound},
		{"already processed", `{"emailId":"` + uuid.NewString() + `"}`, routing.ErrAlreadyProcessed, fiber.StatusConflict},
		{"ok", `{"emailId":"` + uuid.NewString() + `"}`, nil, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakePipeline{processErr: tt.processErr}
			app := newTestApp(f)
			status, body := do(t, app, "POST", "/api/v1/emails/process", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			for _, u := range f.processedBy {
				assert.Equal(t, testUser, u, "token subject is the owner")
			}
			if status == fiber.StatusOK {
				assert.Equal(t, "IT Security", body["team"])
				assert.Equal(t, true, body["taskCreated"])
				assert.Equal(t, false, body["meetingCreated"])
				assert.NotNil(t, body["classification"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestFetchEmails(t *testing.T) {
	app := newTestApp(&fakePipeline{})
	status, body := do(t, app, "POST", "/api/v1/emails/fetch/gmail", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["fetched"])
	assert.Equal(t, float64(2), body["tasksCreated"])

	status, _ = do(t, app, "POST", "/api/v1/emails/fetch/yahoo", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	upstream := apperr.ExternalError("outlook", errors.New("graph API error: 503 - unavailable"))
	app = newTestApp(&fakePipeline{ingestErr: upstream})
	status, body = do(t, app, "POST", "/api/v1/emails/fetch/outlook", "")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, body["error"], "graph API error: 503")

	app = newTestApp(&fakePipeline{ingestErr: apperr.NotConnected("gmail")})
	status, _ = do(t, app, "POST", "/api/v1/emails/fetch/gmail", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAutomationEndpoints(t *testing.T) {
	f := &fakePipeline{}
	app := newTestApp(f)

	status, body := do(t, app, "POST", "/api/v1/escalations/check", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(4), body["checked"])
	assert.Equal(t, float64(1), body["escalated"])

	status, _ = do(t, app, "POST", "/api/v1/analytics/generate", `{"date":"2026-10-01"}`)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, "POST", "/api/v1/analytics/generate", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []time.Time{time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), testDay}, f.generated)

	status, _ = do(t, app, "POST", "/api/v1/analytics/generate", `{"date":"yesterday"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "GET", "/api/v1/analytics/2026-10-01", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	f.getSnap = &domain.AnalyticsSnapshot{MetricDate: testDay, TotalEmails: 9}
	status, body = do(t, app, "GET", "/api/v1/analytics/2026-10-14", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(9), body["total_emails"])

	status, body = do(t, app, "POST", "/api/v1/automation/run", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, body["escalations"])
	assert.NotNil(t, body["metrics"])

	status, body = do(t, app, "POST", "/api/v1/summaries/generate", `{"date":"2026-10-13"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, testUser.String(), body["user_id"])
}

func TestWorkEndpoints(t *testing.T) {
	f := &fakePipeline{}
	app := newTestApp(f)
	taskID := uuid.NewString()

	status, body := do(t, app, "PATCH", "/api/v1/tasks/"+taskID+"/status", `{"status":"completed"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "completed", body["status"])

	status, _ = do(t, app, "PATCH", "/api/v1/tasks/"+taskID+"/status", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "PATCH", "/api/v1/tasks/not-a-uuid/status", `{"status":"completed"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	f.statusErr = apperr.Forbidden("task belongs to another user")
	status, _ = do(t, app, "PATCH", "/api/v1/tasks/"+taskID+"/status", `{"status":"completed"}`)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = do(t, app, "POST", "/api/v1/assignments/"+uuid.NewString()+"/acknowledge", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["acknowledged"])

	status, _ = do(t, app, "POST", "/api/v1/assignments/"+uuid.NewString()+"/resolve", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRequiresUser(t *testing.T) {
	app := newTestApp(&fakePipeline{})
	req := httptest.NewRequest("POST", "/api/v1/emails/fetch/gmail", nil)
	req.Header.Set("X-Anonymous", "1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

type failingPing struct{}

func (failingPing) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
	}{
		{"all healthy", map[string]HealthChecker{"postgres": PingFunc(func(context.Context) error { return nil }), "redis": nil}, fiber.StatusOK},
		{"one failing", map[string]HealthChecker{"postgres": failingPing{}}, fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthHandler(tt.checks).Register(app)

			status, _ := do(t, app, "GET", "/health", "")
			assert.Equal(t, fiber.StatusOK, status)

			status, body := do(t, app, "GET", "/ready", "")
			assert.Equal(t, tt.wantStatus, status)
			assert.Len(t, body["checks"], len(tt.checks))
		})
	}
}
