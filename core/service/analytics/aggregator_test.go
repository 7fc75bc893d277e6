package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"officeflow/adapter/out/memory"
	"officeflow/core/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

type recordingArchive struct {
	saved []domain.AnalyticsSnapshot
	err   error
}

func (r *recordingArchive) Save(_ context.Context, s *domain.AnalyticsSnapshot) error {
	r.saved = append(r.saved, *s)
	return r.err
}

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()

	access := &domain.RequestType{Name: "Access Request", RoutingTeam: "IT Security", SLAHours: 8, IsActive: true}
	require.NoError(t, store.RequestTypes().Upsert(ctx, access))

	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	// two emails today, one yesterday
	for _, created := range []time.Time{at(1), at(2), at(-3)} {
		_, err := store.Emails().Create(ctx, &domain.Email{UserID: uuid.New(), ExternalID: uuid.NewString(), CreatedAt: created})
		require.NoError(t, err)
	}

	matched := &domain.Classification{EmailID: uuid.New(), RequestTypeID: &access.ID, ClassifiedAt: at(1)}
	unmatched := &domain.Classification{EmailID: uuid.New(), ClassifiedAt: at(2)}
	old := &domain.Classification{EmailID: uuid.New(), RequestTypeID: &access.ID, ClassifiedAt: at(-5)}
	for _, c := range []*domain.Classification{matched, unmatched, old} {
		_, err := store.Classifications().Create(ctx, c)
		require.NoError(t, err)
	}

	resolved := &domain.TeamAssignment{EmailID: matched.EmailID, ClassificationID: matched.ID, TeamName: "IT Security", AssignedAt: at(1)}
	resolved.Resolve(at(1).Add(90 * time.Minute))
	open := &domain.TeamAssignment{EmailID: unmatched.EmailID, ClassificationID: unmatched.ID, TeamName: "General", AssignedAt: at(2)}
	resolvedLater := &domain.TeamAssignment{EmailID: old.EmailID, ClassificationID: old.ID, TeamName: "IT Security", AssignedAt: at(-5)}
	resolvedLater.Resolve(at(3))
	for _, a := range []*domain.TeamAssignment{resolved, open, resolvedLater} {
		require.NoError(t, store.Assignments().Create(ctx, a))
	}

	require.NoError(t, store.AutoReplies().Create(ctx, &domain.AutoReply{EmailID: matched.EmailID, SentAt: at(1)}))

	breach := &domain.Escalation{TeamAssignmentID: open.ID, IsSLABreach: true, EscalatedAt: at(4), Reason: "over"}
	manual := &domain.Escalation{TeamAssignmentID: resolved.ID, IsSLABreach: false, EscalatedAt: at(5), Reason: "SLA breach mentioned in text"}
	for _, e := range []*domain.Escalation{breach, manual} {
		_, err := store.Escalations().CreateIfAbsent(ctx, e)
		require.NoError(t, err)
	}
}

func newAggregator(store *memory.Store, archive *recordingArchive, now func() time.Time) *Aggregator {
	deps := Deps{
		Emails:          store.Emails(),
		Classifications: store.Classifications(),
		Assignments:     store.Assignments(),
		AutoReplies:     store.AutoReplies(),
		Escalations:     store.Escalations(),
		Snapshots:       store.Analytics(),
	}
	if archive != nil {
		deps.Archive = archive
	}
	return NewAggregator(deps, now, zerolog.Nop())
}

func TestGenerate(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	archive := &recordingArchive{}
	agg := newAggregator(store, archive, func() time.Time { return day.Add(20 * time.Hour) })

	snap, err := agg.Generate(context.Background(), day.Add(13*time.Hour))
	require.NoError(t, err)

	want := &domain.AnalyticsSnapshot{
		MetricDate:         day,
		TotalEmails:        2,
		ClassifiedEmails:   2,
		AutoRepliesSent:    1,
		Escalations:        2,
		SLABreaches:        1,
		AvgResponseMinutes: (90.0 + 480.0) / 2,
		RequestTypeBreakdown: map[string]int{
			"Access Request": 1,
			"Unknown":        1,
		},
		TeamPerformance: map[string]domain.TeamStats{
			"IT Security": {Total: 1, Resolved: 1},
			"General":     {Total: 1, Resolved: 0},
		},
	}
	if diff := cmp.Diff(want, snap, cmpopts.IgnoreFields(domain.AnalyticsSnapshot{}, "UpdatedAt")); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	stored, err := agg.Get(context.Background(), day)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, stored); diff != "" {
		t.Errorf("stored snapshot differs (-generated +stored):\n%s", diff)
	}
	require.Len(t, archive.saved, 1)
}

func TestGenerateIsDeterministic(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	// 실행마다 시계가 진행: updated_at만 달라져야 함
	clock := day.Add(20 * time.Hour)
	agg := newAggregator(store, nil, func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	first, err := agg.Generate(context.Background(), day)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := agg.Generate(context.Background(), day)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again, cmpopts.IgnoreFields(domain.AnalyticsSnapshot{}, "UpdatedAt")); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
		require.True(t, again.UpdatedAt.After(first.UpdatedAt))
	}
	require.Equal(t, 1, store.Analytics().Len())

	stored, err := agg.Get(context.Background(), day)
	require.NoError(t, err)
	if diff := cmp.Diff(first, stored, cmpopts.IgnoreFields(domain.AnalyticsSnapshot{}, "UpdatedAt")); diff != "" {
		t.Errorf("stored snapshot differs (-first +stored):\n%s", diff)
	}
}

func TestGenerateEmptyDay(t *testing.T) {
	store := memory.NewStore()
	agg := newAggregator(store, nil, nil)

	snap, err := agg.Generate(context.Background(), day)
	require.NoError(t, err)
	require.Zero(t, snap.AvgResponseMinutes)
	require.NotNil(t, snap.RequestTypeBreakdown)
	require.NotNil(t, snap.TeamPerformance)
}

func TestGenerateArchiveFailureIsNotFatal(t *testing.T) {
	store := memory.NewStore()
	archive := &recordingArchive{err: errors.New("mongo unavailable")}
	agg := newAggregator(store, archive, nil)

	_, err := agg.Generate(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, 1, store.Analytics().Len())
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"none", nil, 0},
		{"one", []float64{12.5}, 12.5},
		{"rounded", []float64{1, 2, 2}, 1.67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := average(tt.values); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
