package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"officeflow/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AssignmentRepository implements out.AssignmentRepository
type AssignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

type assignmentRow struct {
	ID                  uuid.UUID       `db:"id"`
	EmailID             uuid.UUID       `db:"email_id"`
	ClassificationID    uuid.UUID       `db:"classification_id"`
	TeamName            string          `db:"team_name"`
	AssignedAt          time.Time       `db:"assigned_at"`
	Acknowledged        bool            `db:"acknowledged"`
	AcknowledgedAt      sql.NullTime    `db:"acknowledged_at"`
	Resolved            bool            `db:"resolved"`
	ResolvedAt          sql.NullTime    `db:"resolved_at"`
	ResponseTimeMinutes sql.NullFloat64 `db:"response_time_minutes"`
}

func (r *assignmentRow) toDomain() domain.TeamAssignment {
	return domain.TeamAssignment{
		ID:                  r.ID,
		EmailID:             r.EmailID,
		ClassificationID:    r.ClassificationID,
		TeamName:            r.TeamName,
		AssignedAt:          r.AssignedAt,
		Acknowledged:        r.Acknowledged,
		AcknowledgedAt:      timePtr(r.AcknowledgedAt),
		Resolved:            r.Resolved,
		ResolvedAt:          timePtr(r.ResolvedAt),
		ResponseTimeMinutes: floatPtr(r.ResponseTimeMinutes),
	}
}

const assignmentColumns = `id, email_id, classification_id, team_name, assigned_at,
		       acknowledged, acknowledged_at, resolved, resolved_at, response_time_minutes`

func (r *AssignmentRepository) Create(ctx context.Context, a *domain.TeamAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO team_assignments (id, email_id, classification_id, team_name, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, a.ID, a.EmailID, a.ClassificationID, a.TeamName, a.AssignedAt)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("insert assignment: %w", ErrDuplicate)
	}
	return nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TeamAssignment, error) {
	var row assignmentRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+assignmentColumns+` FROM team_assignments WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	a := row.toDomain()
	return &a, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, a *domain.TeamAssignment) error {
	query := `
		UPDATE team_assignments
		SET acknowledged = $2, acknowledged_at = $3, resolved = $4, resolved_at = $5,
		    response_time_minutes = $6
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.Acknowledged, nullTime(a.AcknowledgedAt), a.Resolved, nullTime(a.ResolvedAt),
		nullFloat(a.ResponseTimeMinutes),
	)
	if err := affected(res, err); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

type overdueRow struct {
	assignmentRow
	RTID         uuid.NullUUID  `db:"rt_id"`
	RTName       sql.NullString `db:"rt_name"`
	RTTeam       sql.NullString `db:"rt_routing_team"`
	RTSLAHours   sql.NullInt64  `db:"rt_sla_hours"`
	RTEscalateTo sql.NullString `db:"rt_escalate_to"`
	Escalated    bool           `db:"cls_escalated"`
}

func (r *overdueRow) toDomain() domain.OverdueAssignment {
	item := domain.OverdueAssignment{
		Assignment:              r.assignmentRow.toDomain(),
		ClassificationEscalated: r.Escalated,
	}
	if r.RTID.Valid {
		item.RequestType = &domain.RequestType{
			ID:          r.RTID.UUID,
			Name:        r.RTName.String,
			RoutingTeam: r.RTTeam.String,
			SLAHours:    int(r.RTSLAHours.Int64),
			EscalateTo:  stringPtr(r.RTEscalateTo),
			IsActive:    true,
		}
	}
	return item
}

func (r *AssignmentRepository) ListUnresolved(ctx context.Context) ([]domain.OverdueAssignment, error) {
	query := `
		SELECT ` + prefixed("a", assignmentColumns) + `,
		       rt.id AS rt_id, rt.name AS rt_name, rt.routing_team AS rt_routing_team,
		       rt.sla_hours AS rt_sla_hours, rt.escalate_to AS rt_escalate_to,
		       COALESCE(c.escalated, FALSE) AS cls_escalated
		FROM team_assignments a
		LEFT JOIN email_classifications c ON c.id = a.classification_id
		LEFT JOIN request_types rt ON rt.id = c.request_type_id
		WHERE a.resolved = FALSE
		ORDER BY a.assigned_at`

	var rows []overdueRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list unresolved assignments: %w", err)
	}

	out := make([]domain.OverdueAssignment, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *AssignmentRepository) ResponseMinutesResolvedBetween(ctx context.Context, from, to time.Time) ([]float64, error) {
	query := `
		SELECT response_time_minutes
		FROM team_assignments
		WHERE resolved = TRUE AND response_time_minutes IS NOT NULL
		  AND resolved_at >= $1 AND resolved_at < $2
		ORDER BY response_time_minutes`

	var minutes []float64
	if err := r.db.SelectContext(ctx, &minutes, query, from, to); err != nil {
		return nil, fmt.Errorf("response times: %w", err)
	}
	return minutes, nil
}

func (r *AssignmentRepository) TeamPerformanceBetween(ctx context.Context, from, to time.Time) (map[string]domain.TeamStats, error) {
	query := `
		SELECT team_name, COUNT(*) AS total, COUNT(*) FILTER (WHERE resolved) AS resolved
		FROM team_assignments
		WHERE assigned_at >= $1 AND assigned_at < $2
		GROUP BY team_name`

	var rows []struct {
		TeamName string `db:"team_name"`
		Total    int    `db:"total"`
		Resolved int    `db:"resolved"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("team performance: %w", err)
	}

	out := make(map[string]domain.TeamStats, len(rows))
	for _, row := range rows {
		out[row.TeamName] = domain.TeamStats{Total: row.Total, Resolved: row.Resolved}
	}
	return out, nil
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
