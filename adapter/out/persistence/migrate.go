package persistence

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Repositories bundles every Postgres repository over one connection.
type Repositories struct {
	Emails          *EmailRepository
	RequestTypes    *RequestTypeRepository
	Classifications *ClassificationRepository
	Assignments     *AssignmentRepository
	Tasks           *TaskRepository
	Meetings        *MeetingRepository
	AutoReplies     *AutoReplyRepository
	Escalations     *EscalationRepository
	Analytics       *AnalyticsRepository
	Connections     *ConnectionRepository
	Summaries       *SummaryRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Emails:          NewEmailRepository(db),
		RequestTypes:    NewRequestTypeRepository(db),
		Classifications: NewClassificationRepository(db),
		Assignments:     NewAssignmentRepository(db),
		Tasks:           NewTaskRepository(db),
		Meetings:        NewMeetingRepository(db),
		AutoReplies:     NewAutoReplyRepository(db),
		Escalations:     NewEscalationRepository(db),
		Analytics:       NewAnalyticsRepository(db),
		Connections:     NewConnectionRepository(db),
		Summaries:       NewSummaryRepository(db),
	}
}
