package persistence

import (
	"context"
	"fmt"

	"officeflow/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SummaryRepository implements out.SummaryRepository
type SummaryRepository struct {
	db *sqlx.DB
}

func NewSummaryRepository(db *sqlx.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) Upsert(ctx context.Context, d *domain.DailySummary) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	query := `
		INSERT INTO daily_summaries (id, user_id, summary_date, emails_processed, tasks_pending,
		                             tasks_completed, meetings_scheduled, summary_text, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, summary_date) DO UPDATE SET
			emails_processed = EXCLUDED.emails_processed,
			tasks_pending = EXCLUDED.tasks_pending,
			tasks_completed = EXCLUDED.tasks_completed,
			meetings_scheduled = EXCLUDED.meetings_scheduled,
			summary_text = EXCLUDED.summary_text,
			updated_at = EXCLUDED.updated_at
		RETURNING id`

	var id uuid.UUID
	if err := r.db.QueryRowxContext(ctx, query,
		d.ID, d.UserID, d.SummaryDate.UTC().Format(domain.DateFormat), d.EmailsProcessed, d.TasksPending,
		d.TasksCompleted, d.MeetingsScheduled, d.SummaryText, d.UpdatedAt,
	).Scan(&id); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	d.ID = id
	return nil
}
