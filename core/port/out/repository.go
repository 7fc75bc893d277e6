package out

import (
	"context"
	"time"

	"officeflow/core/domain"

	"github.com/google/uuid"
)

// Get* methods return (nil, nil) when the row does not exist.

// EmailRepository persists ingested emails.
type EmailRepository interface {
	// Create inserts the email unless (user_id, external_id) is already
	// stored. It reports whether a new row was written; on a duplicate the
	// email's ID is set to the existing row's.
	Create(ctx context.Context, email *domain.Email) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Email, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, summary string, hasTask bool) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	CountForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
}

// RequestTypeRepository reads the request-type catalog.
type RequestTypeRepository interface {
	ListActive(ctx context.Context) ([]domain.RequestType, error)
	// Upsert writes a catalog entry keyed by name.
	Upsert(ctx context.Context, rt *domain.RequestType) error
}

// ClassificationRepository persists classifier output. One row per email.
type ClassificationRepository interface {
	// Create reports false when the email already has a classification.
	Create(ctx context.Context, c *domain.Classification) (bool, error)
	GetByEmailID(ctx context.Context, emailID uuid.UUID) (*domain.Classification, error)
	MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAutoReplySent(ctx context.Context, id uuid.UUID) error
	CountClassifiedBetween(ctx context.Context, from, to time.Time) (int, error)
	// CountByRequestTypeBetween groups by matched request type name;
	// unmatched classifications are keyed "Unknown".
	CountByRequestTypeBetween(ctx context.Context, from, to time.Time) (map[string]int, error)
}

// AssignmentRepository persists team assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.TeamAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TeamAssignment, error)
	Update(ctx context.Context, a *domain.TeamAssignment) error
	// ListUnresolved joins each open assignment with the request type its
	// classification matched.
	ListUnresolved(ctx context.Context) ([]domain.OverdueAssignment, error)
	// ResponseMinutesResolvedBetween returns response times of assignments
	// resolved in the window.
	ResponseMinutesResolvedBetween(ctx context.Context, from, to time.Time) ([]float64, error)
	TeamPerformanceBetween(ctx context.Context, from, to time.Time) (map[string]domain.TeamStats, error)
}

// TaskRepository persists tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	CountByStatusForUser(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error)
}

// MeetingRepository persists detected meetings.
type MeetingRepository interface {
	Create(ctx context.Context, m *domain.Meeting) error
	CountStartingForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
}

// AutoReplyRepository persists drafted replies.
type AutoReplyRepository interface {
	Create(ctx context.Context, r *domain.AutoReply) error
	CountSentBetween(ctx context.Context, from, to time.Time) (int, error)
}

// EscalationRepository persists escalations. One row per team assignment.
type EscalationRepository interface {
	// CreateIfAbsent atomically inserts e unless an escalation already
	// exists for e.TeamAssignmentID. It reports whether e was inserted.
	CreateIfAbsent(ctx context.Context, e *domain.Escalation) (bool, error)
	GetByAssignmentID(ctx context.Context, assignmentID uuid.UUID) (*domain.Escalation, error)
	Resolve(ctx context.Context, id uuid.UUID, at time.Time) error
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
	CountSLABreachesBetween(ctx context.Context, from, to time.Time) (int, error)
}

// AnalyticsRepository persists daily snapshots keyed by metric date.
type AnalyticsRepository interface {
	Upsert(ctx context.Context, s *domain.AnalyticsSnapshot) error
	GetByDate(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error)
}

// ConnectionRepository stores provider OAuth credentials.
type ConnectionRepository interface {
	Get(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*domain.ProviderConnection, error)
	UpdateToken(ctx context.Context, c *domain.ProviderConnection) error
}

// SummaryRepository persists per-user daily summaries.
type SummaryRepository interface {
	Upsert(ctx context.Context, s *domain.DailySummary) error
}
