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

// EscalationRepository implements out.EscalationRepository
type EscalationRepository struct {
	db *sqlx.DB
}

func NewEscalationRepository(db *sqlx.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

type escalationRow struct {
	ID               uuid.UUID    `db:"id"`
	TeamAssignmentID uuid.UUID    `db:"team_assignment_id"`
	ClassificationID uuid.UUID    `db:"classification_id"`
	Reason           string       `db:"reason"`
	EscalatedTo      string       `db:"escalated_to"`
	IsSLABreach      bool         `db:"is_sla_breach"`
	ElapsedHours     float64      `db:"elapsed_hours"`
	SLAHours         int          `db:"sla_hours"`
	EscalatedAt      time.Time    `db:"escalated_at"`
	Resolved         bool         `db:"resolved"`
	ResolvedAt       sql.NullTime `db:"resolved_at"`
}

func (r *escalationRow) toDomain() *domain.Escalation {
	return &domain.Escalation{
		ID:               r.ID,
		TeamAssignmentID: r.TeamAssignmentID,
		ClassificationID: r.ClassificationID,
		Reason:           r.Reason,
		EscalatedTo:      r.EscalatedTo,
		IsSLABreach:      r.IsSLABreach,
		ElapsedHours:     r.ElapsedHours,
		SLAHours:         r.SLAHours,
		EscalatedAt:      r.EscalatedAt,
		Resolved:         r.Resolved,
		ResolvedAt:       timePtr(r.ResolvedAt),
	}
}

// CreateIfAbsent relies on the unique team_assignment_id constraint so that
// concurrent scanners insert at most one row per assignment.
func (r *EscalationRepository) CreateIfAbsent(ctx context.Context, e *domain.Escalation) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := `
		INSERT INTO escalations (id, team_assignment_id, classification_id, reason, escalated_to,
		                         is_sla_breach, elapsed_hours, sla_hours, escalated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (team_assignment_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		e.ID, e.TeamAssignmentID, e.ClassificationID, e.Reason, e.EscalatedTo,
		e.IsSLABreach, e.ElapsedHours, e.SLAHours, e.EscalatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert escalation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert escalation: %w", err)
	}
	return n == 1, nil
}

func (r *EscalationRepository) GetByAssignmentID(ctx context.Context, assignmentID uuid.UUID) (*domain.Escalation, error) {
	query := `
		SELECT id, team_assignment_id, classification_id, reason, escalated_to, is_sla_breach,
		       elapsed_hours, sla_hours, escalated_at, resolved, resolved_at
		FROM escalations
		WHERE team_assignment_id = $1`

	var row escalationRow
	if err := r.db.GetContext(ctx, &row, query, assignmentID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get escalation: %w", err)
	}
	return row.toDomain(), nil
}

func (r *EscalationRepository) Resolve(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE escalations SET resolved = TRUE, resolved_at = $2 WHERE id = $1`, id, at)
	if err := affected(res, err); err != nil {
		return fmt.Errorf("resolve escalation: %w", err)
	}
	return nil
}

func (r *EscalationRepository) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM escalations WHERE escalated_at >= $1 AND escalated_at < $2`, from, to,
	); err != nil {
		return 0, fmt.Errorf("count escalations: %w", err)
	}
	return n, nil
}

func (r *EscalationRepository) CountSLABreachesBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM escalations WHERE is_sla_breach AND escalated_at >= $1 AND escalated_at < $2`, from, to,
	); err != nil {
		return 0, fmt.Errorf("count sla breaches: %w", err)
	}
	return n, nil
}
