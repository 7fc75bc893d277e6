package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"officeflow/core/domain"
	"officeflow/core/service/escalation"
	"officeflow/core/service/ingest"
	"officeflow/core/service/routing"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStages struct {
	processed  []uuid.UUID
	ingested   []domain.Provider
	scans      int
	analytics  []time.Time
	summaries  []time.Time
	processErr error
}

func (f *fakeStages) Process(_ context.Context, _ uuid.UUID, id uuid.UUID) (*routing.Outcome, error) {
	f.processed = append(f.processed, id)
	if f.processErr != nil {
		return nil, f.processErr
	}
	return &routing.Outcome{EmailID: id, Team: "General"}, nil
}

func (f *fakeStages) Ingest(_ context.Context, _ uuid.UUID, p domain.Provider) (*ingest.Summary, error) {
	f.ingested = append(f.ingested, p)
	return &ingest.Summary{Fetched: 1, Stored: 1}, nil
}

func (f *fakeStages) Scan(context.Context) (escalation.ScanResult, error) {
	f.scans++
	return escalation.ScanResult{Checked: 2, Escalated: 1}, nil
}

func (f *fakeStages) Generate(_ context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	f.analytics = append(f.analytics, day)
	return &domain.AnalyticsSnapshot{MetricDate: day}, nil
}

func (f *fakeStages) Today() time.Time {
	return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
}

type fakeSummaries struct{ days []time.Time }

func (f *fakeSummaries) Generate(_ context.Context, userID uuid.UUID, day time.Time) (*domain.DailySummary, error) {
	f.days = append(f.days, day)
	return &domain.DailySummary{UserID: userID}, nil
}

func newTestHandler(f *fakeStages, s *fakeSummaries) *Handler {
	return NewHandler(Services{
		Router:    f,
		Ingest:    f,
		Scanner:   f,
		Analytics: f,
		Summaries: s,
	}, zerolog.Nop())
}

func TestHandlerProcess(t *testing.T) {
	f := &fakeStages{}
	s := &fakeSummaries{}
	h := newTestHandler(f, s)
	ctx := context.Background()
	emailID := uuid.New()
	userID := uuid.New().String()

	require.NoError(t, h.Process(ctx, NewMessage(JobEmailProcess, map[string]any{"user_id": userID, "email_id": emailID.String()})))
	require.NoError(t, h.Process(ctx, NewMessage(JobEmailIngest, map[string]any{"user_id": userID, "provider": "gmail"})))
	require.NoError(t, h.Process(ctx, NewMessage(JobEscalationScan, nil)))
	require.NoError(t, h.Process(ctx, NewMessage(JobAnalyticsGenerate, map[string]any{})))
	require.NoError(t, h.Process(ctx, NewMessage(JobAnalyticsGenerate, map[string]any{"date": "2026-10-01"})))
	require.NoError(t, h.Process(ctx, NewMessage(JobSummaryGenerate, map[string]any{"user_id": userID, "date": "2026-10-02"})))
	require.NoError(t, h.Process(ctx, NewMessage("unknown.job", nil)))

	assert.Equal(t, []uuid.UUID{emailID}, f.processed)
	assert.Equal(t, []domain.Provider{domain.ProviderGmail}, f.ingested)
	assert.Equal(t, 1, f.scans)
	assert.Equal(t, []time.Time{
		time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}, f.analytics)
	assert.Equal(t, []time.Time{time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)}, s.days)
}

func TestHandlerProcessAlreadyClassified(t *testing.T) {
	f := &fakeStages{processErr: routing.ErrAlreadyProcessed}
	h := newTestHandler(f, &fakeSummaries{})

	err := h.Process(context.Background(), NewMessage(JobEmailProcess, map[string]any{"user_id": uuid.NewString(), "email_id": uuid.NewString()}))
	assert.NoError(t, err)
}

func TestHandlerProcessErrors(t *testing.T) {
	tests := []struct {
		name       string
		msg        *Message
		wantStatus int
	}{
		{"bad email id", NewMessage(JobEmailProcess, map[string]any{"user_id": uuid.NewString(), "email_id": "nope"}), 400},
		{"missing owner", NewMessage(JobEmailProcess, map[string]any{"email_id": uuid.NewString()}), 400},
		{"bad user id", NewMessage(JobEmailIngest, map[string]any{"user_id": "", "provider": "gmail"}), 400},
		{"bad date", NewMessage(JobAnalyticsGenerate, map[string]any{"date": "14/10/2026"}), 400},
		{"wrong payload type", NewMessage(JobEmailProcess, map[string]any{"user_id": uuid.NewString(), "email_id": 42}), 400},
	}

	h := newTestHandler(&fakeStages{}, &fakeSummaries{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Process(context.Background(), tt.msg)
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, apperr.GetHTTPStatus(err))
		})
	}
}

func TestHandlerMissingService(t *testing.T) {
	h := NewHandler(Services{}, zerolog.Nop())
	err := h.Process(context.Background(), NewMessage(JobEscalationScan, nil))
	require.Error(t, err)
	assert.Equal(t, 500, apperr.GetHTTPStatus(err))
}

func TestHandlerPropagatesStageError(t *testing.T) {
	boom := errors.New("db down")
	h := newTestHandler(&fakeStages{processErr: boom}, &fakeSummaries{})

	err := h.Process(context.Background(), NewMessage(JobEmailProcess, map[string]any{"user_id": uuid.NewString(), "email_id": uuid.NewString()}))
	assert.ErrorIs(t, err, boom)
}
