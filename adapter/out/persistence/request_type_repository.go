package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"officeflow/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// RequestTypeRepository implements out.RequestTypeRepository
type RequestTypeRepository struct {
	db *sqlx.DB
}

func NewRequestTypeRepository(db *sqlx.DB) *RequestTypeRepository {
	return &RequestTypeRepository{db: db}
}

type requestTypeRow struct {
	ID                uuid.UUID      `db:"id"`
	Name              string         `db:"name"`
	Category          string         `db:"category"`
	Keywords          pq.StringArray `db:"keywords"`
	RoutingTeam       string         `db:"routing_team"`
	SLAHours          int            `db:"sla_hours"`
	AutoReplyTemplate string         `db:"auto_reply_template"`
	EscalateTo        sql.NullString `db:"escalate_to"`
	IsActive          bool           `db:"is_active"`
}

func (r *requestTypeRow) toDomain() domain.RequestType {
	rt := domain.RequestType{
		ID:                r.ID,
		Name:              r.Name,
		Category:          r.Category,
		Keywords:          []string(r.Keywords),
		RoutingTeam:       r.RoutingTeam,
		SLAHours:          r.SLAHours,
		AutoReplyTemplate: r.AutoReplyTemplate,
		IsActive:          r.IsActive,
	}
	if rt.Keywords == nil {
		rt.Keywords = []string{}
	}
	if r.EscalateTo.Valid && r.EscalateTo.String != "" {
		s := r.EscalateTo.String
		rt.EscalateTo = &s
	}
	return rt
}

func (r *RequestTypeRepository) ListActive(ctx context.Context) ([]domain.RequestType, error) {
	query := `
		SELECT id, name, category, keywords, routing_team, sla_hours,
		       auto_reply_template, escalate_to, is_active
		FROM request_types
		WHERE is_active = TRUE
		ORDER BY name`

	var rows []requestTypeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list request types: %w", err)
	}

	types := make([]domain.RequestType, len(rows))
	for i := range rows {
		types[i] = rows[i].toDomain()
	}
	return types, nil
}

// Upsert writes rt keyed by name and sets rt.ID to the stored row's id.
func (r *RequestTypeRepository) Upsert(ctx context.Context, rt *domain.RequestType) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}

	query := `
		INSERT INTO request_types (id, name, category, keywords, routing_team, sla_hours,
		                           auto_reply_template, escalate_to, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			category = EXCLUDED.category,
			keywords = EXCLUDED.keywords,
			routing_team = EXCLUDED.routing_team,
			sla_hours = EXCLUDED.sla_hours,
			auto_reply_template = EXCLUDED.auto_reply_template,
			escalate_to = EXCLUDED.escalate_to,
			is_active = EXCLUDED.is_active
		RETURNING id`

	var escalateTo sql.NullString
	if rt.EscalateTo != nil {
		escalateTo = sql.NullString{String: *rt.EscalateTo, Valid: true}
	}

	var id uuid.UUID
	if err := r.db.QueryRowxContext(ctx, query,
		rt.ID, rt.Name, rt.Category, pq.Array(rt.Keywords), rt.RoutingTeam, rt.SLAHours,
		rt.AutoReplyTemplate, escalateTo, rt.IsActive,
	).Scan(&id); err != nil {
		return fmt.Errorf("upsert request type: %w", err)
	}
	rt.ID = id
	return nil
}
