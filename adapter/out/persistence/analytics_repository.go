package persistence

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

// AnalyticsRepository implements out.AnalyticsRepository
type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

type analyticsRow struct {
	MetricDate           time.Time `db:"metric_date"`
	TotalEmails          int       `db:"total_emails"`
	ClassifiedEmails     int       `db:"classified_emails"`
	AutoRepliesSent      int       `db:"auto_replies_sent"`
	Escalations          int       `db:"escalations"`
	SLABreaches          int       `db:"sla_breaches"`
	AvgResponseMinutes   float64   `db:"avg_response_time_minutes"`
	RequestTypeBreakdown []byte    `db:"request_types_breakdown"`
	TeamPerformance      []byte    `db:"team_performance"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (r *analyticsRow) toDomain() (*domain.AnalyticsSnapshot, error) {
	s := &domain.AnalyticsSnapshot{
		MetricDate:           r.MetricDate.UTC(),
		TotalEmails:          r.TotalEmails,
		ClassifiedEmails:     r.ClassifiedEmails,
		AutoRepliesSent:      r.AutoRepliesSent,
		Escalations:          r.Escalations,
		SLABreaches:          r.SLABreaches,
		AvgResponseMinutes:   r.AvgResponseMinutes,
		RequestTypeBreakdown: map[string]int{},
		TeamPerformance:      map[string]domain.TeamStats{},
		UpdatedAt:            r.UpdatedAt,
	}
	if len(r.RequestTypeBreakdown) > 0 {
		if err := json.Unmarshal(r.RequestTypeBreakdown, &s.RequestTypeBreakdown); err != nil {
			return nil, fmt.Errorf("decode request type breakdown: %w", err)
		}
	}
	if len(r.TeamPerformance) > 0 {
		if err := json.Unmarshal(r.TeamPerformance, &s.TeamPerformance); err != nil {
			return nil, fmt.Errorf("decode team performance: %w", err)
		}
	}
	return s, nil
}

// Upsert overwrites the whole row for the snapshot's date.
func (r *AnalyticsRepository) Upsert(ctx context.Context, s *domain.AnalyticsSnapshot) error {
	breakdown, err := json.Marshal(s.RequestTypeBreakdown)
	if err != nil {
		return fmt.Errorf("encode request type breakdown: %w", err)
	}
	teams, err := json.Marshal(s.TeamPerformance)
	if err != nil {
		return fmt.Errorf("encode team performance: %w", err)
	}

	query := `
		INSERT INTO analytics (metric_date, total_emails, classified_emails, auto_replies_sent,
		                       escalations, sla_breaches, avg_response_time_minutes,
		                       request_types_breakdown, team_performance, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (metric_date) DO UPDATE SET
			total_emails = EXCLUDED.total_emails,
			classified_emails = EXCLUDED.classified_emails,
			auto_replies_sent = EXCLUDED.auto_replies_sent,
			escalations = EXCLUDED.escalations,
			sla_breaches = EXCLUDED.sla_breaches,
			avg_response_time_minutes = EXCLUDED.avg_response_time_minutes,
			request_types_breakdown = EXCLUDED.request_types_breakdown,
			team_performance = EXCLUDED.team_performance,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query,
		s.MetricDate.Format(domain.DateFormat), s.TotalEmails, s.ClassifiedEmails, s.AutoRepliesSent,
		s.Escalations, s.SLABreaches, s.AvgResponseMinutes,
		string(breakdown), string(teams), s.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert analytics: %w", err)
	}
	return nil
}

func (r *AnalyticsRepository) GetByDate(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	query := `
		SELECT metric_date, total_emails, classified_emails, auto_replies_sent, escalations,
		       sla_breaches, avg_response_time_minutes, request_types_breakdown,
		       team_performance, updated_at
		FROM analytics
		WHERE metric_date = $1`

	var row analyticsRow
	if err := r.db.GetContext(ctx, &row, query, day.UTC().Format(domain.DateFormat)); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get analytics: %w", err)
	}
	return row.toDomain()
}
