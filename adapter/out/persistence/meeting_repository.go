package persistence

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MeetingRepository implements out.MeetingRepository
type MeetingRepository struct {
	db *sqlx.DB
}

func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

func (r *MeetingRepository) Create(ctx context.Context, m *domain.Meeting) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	attendees, err := json.Marshal(m.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}

	query := `
		INSERT INTO meetings (id, user_id, email_id, title, start_time, end_time, join_url,
		                      provider, attendees, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var emailID uuid.NullUUID
	if m.EmailID != uuid.Nil {
		emailID = uuid.NullUUID{UUID: m.EmailID, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query,
		m.ID, m.UserID, emailID, m.Title, m.StartTime, m.EndTime, nullString(m.JoinURL),
		string(m.Provider), string(attendees), m.ExternalRef, m.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

func (r *MeetingRepository) CountStartingForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM meetings WHERE user_id = $1 AND start_time >= $2 AND start_time < $3`, userID, from, to,
	); err != nil {
		return 0, fmt.Errorf("count meetings: %w", err)
	}
	return n, nil
}
