package summary

import (
	"context"
	"testing"
	"time"

	"officeflow/adapter/out/memory"
	"officeflow/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	day := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	user := uuid.New()

	for i, created := range []time.Time{day.Add(time.Hour), day.Add(5 * time.Hour), day.Add(-time.Hour)} {
		_, err := store.Emails().Create(ctx, &domain.Email{UserID: user, ExternalID: uuid.NewString(), CreatedAt: created})
		require.NoError(t, err, "email %d", i)
	}
	_, err := store.Emails().Create(ctx, &domain.Email{UserID: uuid.New(), ExternalID: "other", CreatedAt: day.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, store.Tasks().Create(ctx, &domain.Task{ID: uuid.New(), UserID: user, Status: domain.TaskStatusPending}))
	require.NoError(t, store.Tasks().Create(ctx, &domain.Task{ID: uuid.New(), UserID: user, Status: domain.TaskStatusCompleted}))
	require.NoError(t, store.Tasks().Create(ctx, &domain.Task{ID: uuid.New(), UserID: user, Status: domain.TaskStatusPending}))
	require.NoError(t, store.Meetings().Create(ctx, &domain.Meeting{ID: uuid.New(), UserID: user, StartTime: day.Add(14 * time.Hour)}))
	require.NoError(t, store.Meetings().Create(ctx, &domain.Meeting{ID: uuid.New(), UserID: user, StartTime: day.Add(30 * time.Hour)}))

	svc := NewService(Deps{
		Emails:    store.Emails(),
		Tasks:     store.Tasks(),
		Meetings:  store.Meetings(),
		Summaries: store.Summaries(),
	}, zerolog.Nop())

	got, err := svc.Generate(ctx, user, day.Add(18*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, day, got.SummaryDate)
	assert.Equal(t, 2, got.EmailsProcessed)
	assert.Equal(t, 2, got.TasksPending)
	assert.Equal(t, 1, got.TasksCompleted)
	assert.Equal(t, 1, got.MeetingsScheduled)
	assert.Equal(t, "Processed 2 emails. 2 tasks pending, 1 completed. 1 meeting today.", got.SummaryText)

	// 재생성해도 같은 행을 덮어씀
	again, err := svc.Generate(ctx, user, day)
	require.NoError(t, err)
	stored, ok := store.Summaries().Get(user, day)
	require.True(t, ok)
	assert.Equal(t, again.ID, stored.ID)
	assert.Equal(t, got.ID, stored.ID)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   domain.DailySummary
		want string
	}{
		{"empty", domain.DailySummary{}, "Processed 0 emails. 0 tasks pending, 0 completed. 0 meetings today."},
		{"singular", domain.DailySummary{EmailsProcessed: 1, TasksPending: 1, TasksCompleted: 1, MeetingsScheduled: 1}, "Processed 1 email. 1 task pending, 1 completed. 1 meeting today."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(&tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
