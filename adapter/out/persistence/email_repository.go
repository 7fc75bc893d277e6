package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"officeflow/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EmailRepository implements out.EmailRepository
type EmailRepository struct {
	db *sqlx.DB
}

func NewEmailRepository(db *sqlx.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

type emailRow struct {
	ID          uuid.UUID      `db:"id"`
	UserID      uuid.UUID      `db:"user_id"`
	ExternalID  string         `db:"external_id"`
	Provider    string         `db:"provider"`
	Sender      string         `db:"sender"`
	Subject     string         `db:"subject"`
	Body        string         `db:"body"`
	ReceivedAt  time.Time      `db:"received_at"`
	IsProcessed bool           `db:"is_processed"`
	HasTask     bool           `db:"has_task"`
	Summary     sql.NullString `db:"summary"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r *emailRow) toDomain() *domain.Email {
	e := &domain.Email{
		ID:          r.ID,
		UserID:      r.UserID,
		ExternalID:  r.ExternalID,
		Provider:    domain.Provider(r.Provider),
		Sender:      r.Sender,
		Subject:     r.Subject,
		Body:        r.Body,
		ReceivedAt:  r.ReceivedAt,
		IsProcessed: r.IsProcessed,
		HasTask:     r.HasTask,
		CreatedAt:   r.CreatedAt,
	}
	if r.Summary.Valid {
		s := r.Summary.String
		e.Summary = &s
	}
	return e
}

// Create inserts the email unless (user_id, external_id) exists. On a
// duplicate the existing row's id is copied onto e.
func (r *EmailRepository) Create(ctx context.Context, e *domain.Email) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO emails (id, user_id, external_id, provider, sender, subject, body, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, external_id) DO NOTHING
		RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRowxContext(ctx, query,
		e.ID, e.UserID, e.ExternalID, string(e.Provider), e.Sender, e.Subject, e.Body, e.ReceivedAt, e.CreatedAt,
	).Scan(&id)
	if err == nil {
		return true, nil
	}
	if !isNoRows(err) {
		return false, fmt.Errorf("insert email: %w", err)
	}

	if err := r.db.GetContext(ctx, &id,
		`SELECT id FROM emails WHERE user_id = $1 AND external_id = $2`, e.UserID, e.ExternalID,
	); err != nil {
		return false, fmt.Errorf("lookup existing email: %w", err)
	}
	e.ID = id
	return false, nil
}

func (r *EmailRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Email, error) {
	query := `
		SELECT id, user_id, external_id, provider, sender, subject, body,
		       received_at, is_processed, has_task, summary, created_at
		FROM emails
		WHERE id = $1`

	var row emailRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get email: %w", err)
	}
	return row.toDomain(), nil
}

func (r *EmailRepository) MarkProcessed(ctx context.Context, id uuid.UUID, summary string, hasTask bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE emails SET summary = $2, is_processed = TRUE, has_task = $3 WHERE id = $1`,
		id, summary, hasTask,
	)
	if err := affected(res, err); err != nil {
		return fmt.Errorf("mark email processed: %w", err)
	}
	return nil
}

func (r *EmailRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM emails WHERE created_at >= $1 AND created_at < $2`, from, to,
	); err != nil {
		return 0, fmt.Errorf("count emails: %w", err)
	}
	return n, nil
}

func (r *EmailRepository) CountForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM emails WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`, userID, from, to,
	); err != nil {
		return 0, fmt.Errorf("count user emails: %w", err)
	}
	return n, nil
}
