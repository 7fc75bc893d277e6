package assignment

import (
	"context"
	"testing"
	"time"

	"officeflow/adapter/out/memory"
	"officeflow/core/domain"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveClosesEscalation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	assigned := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)

	a := &domain.TeamAssignment{ID: uuid.New(), EmailID: uuid.New(), TeamName: "IT Security", AssignedAt: assigned}
	require.NoError(t, store.Assignments().Create(ctx, a))
	_, err := store.Escalations().CreateIfAbsent(ctx, &domain.Escalation{TeamAssignmentID: a.ID, IsSLABreach: true, EscalatedAt: assigned.Add(9 * time.Hour)})
	require.NoError(t, err)

	svc := NewService(store.Assignments(), store.Escalations(), zerolog.Nop())
	svc.now = func() time.Time { return assigned.Add(10*time.Hour + 30*time.Second) }

	got, err := svc.Resolve(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	assert.True(t, got.Acknowledged)
	require.NotNil(t, got.ResponseTimeMinutes)
	assert.Equal(t, 600.5, *got.ResponseTimeMinutes)

	esc, err := store.Escalations().GetByAssignmentID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, esc.Resolved)

	// 이미 해결된 건은 시간이 바뀌지 않음
	svc.now = func() time.Time { return assigned.Add(48 * time.Hour) }
	again, err := svc.Resolve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 600.5, *again.ResponseTimeMinutes)
}

func TestAcknowledge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a := &domain.TeamAssignment{ID: uuid.New(), EmailID: uuid.New(), TeamName: "Finance", AssignedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.Assignments().Create(ctx, a))

	svc := NewService(store.Assignments(), store.Escalations(), zerolog.Nop())
	got, err := svc.Acknowledge(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Acknowledged)
	assert.False(t, got.Resolved)
	require.NotNil(t, got.AcknowledgedAt)
}

func TestUnknownAssignment(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Assignments(), store.Escalations(), zerolog.Nop())

	_, err := svc.Resolve(context.Background(), uuid.New())
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}
