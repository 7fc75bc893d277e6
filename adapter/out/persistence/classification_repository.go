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

// ClassificationRepository implements out.ClassificationRepository
type ClassificationRepository struct {
	db *sqlx.DB
}

func NewClassificationRepository(db *sqlx.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

type classificationRow struct {
	ID              uuid.UUID     `db:"id"`
	EmailID         uuid.UUID     `db:"email_id"`
	RequestTypeID   uuid.NullUUID `db:"request_type_id"`
	RequestTypeName string        `db:"request_type_name"`
	Urgency         string        `db:"urgency"`
	Confidence      float64       `db:"confidence"`
	Summary         string        `db:"summary"`
	RoutingTeam     string        `db:"routing_team"`
	AutoReplySent   bool          `db:"auto_reply_sent"`
	Escalated       bool          `db:"escalated"`
	EscalationTime  sql.NullTime  `db:"escalation_time"`
	ClassifiedAt    time.Time     `db:"classified_at"`
}

func (r *classificationRow) toDomain() *domain.Classification {
	c := &domain.Classification{
		ID:              r.ID,
		EmailID:         r.EmailID,
		RequestTypeName: r.RequestTypeName,
		Urgency:         domain.ParseUrgency(r.Urgency),
		Confidence:      r.Confidence,
		Summary:         r.Summary,
		RoutingTeam:     r.RoutingTeam,
		AutoReplySent:   r.AutoReplySent,
		Escalated:       r.Escalated,
		ClassifiedAt:    r.ClassifiedAt,
	}
	if r.RequestTypeID.Valid {
		id := r.RequestTypeID.UUID
		c.RequestTypeID = &id
	}
	c.EscalationTime = timePtr(r.EscalationTime)
	return c
}

// Create inserts c unless the email already has a classification.
func (r *ClassificationRepository) Create(ctx context.Context, c *domain.Classification) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO email_classifications (id, email_id, request_type_id, request_type_name, urgency,
		                                   confidence, summary, routing_team, classified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.EmailID, nullUUID(c.RequestTypeID), c.RequestTypeName, string(c.Urgency),
		c.Confidence, c.Summary, c.RoutingTeam, c.ClassifiedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert classification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert classification: %w", err)
	}
	return n == 1, nil
}

func (r *ClassificationRepository) GetByEmailID(ctx context.Context, emailID uuid.UUID) (*domain.Classification, error) {
	query := `
		SELECT id, email_id, request_type_id, request_type_name, urgency, confidence, summary,
		       routing_team, auto_reply_sent, escalated, escalation_time, classified_at
		FROM email_classifications
		WHERE email_id = $1`

	var row classificationRow
	if err := r.db.GetContext(ctx, &row, query, emailID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get classification: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ClassificationRepository) MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE email_classifications SET escalated = TRUE, escalation_time = $2 WHERE id = $1`, id, at)
	if err := affected(res, err); err != nil {
		return fmt.Errorf("mark escalated: %w", err)
	}
	return nil
}

func (r *ClassificationRepository) MarkAutoReplySent(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE email_classifications SET auto_reply_sent = TRUE WHERE id = $1`, id)
	if err := affected(res, err); err != nil {
		return fmt.Errorf("mark auto reply sent: %w", err)
	}
	return nil
}

func (r *ClassificationRepository) CountClassifiedBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM email_classifications WHERE classified_at >= $1 AND classified_at < $2`, from, to,
	); err != nil {
		return 0, fmt.Errorf("count classifications: %w", err)
	}
	return n, nil
}

func (r *ClassificationRepository) CountByRequestTypeBetween(ctx context.Context, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT COALESCE(rt.name, 'Unknown') AS name, COUNT(*) AS count
		FROM email_classifications c
		LEFT JOIN request_types rt ON rt.id = c.request_type_id
		WHERE c.classified_at >= $1 AND c.classified_at < $2
		GROUP BY 1`

	var rows []struct {
		Name  string `db:"name"`
		Count int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("count by request type: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Count
	}
	return out, nil
}
