// Package analytics recomputes the per-day counters from the pipeline
// tables. Every run is a full recomputation that overwrites the day's row.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"

	"github.com/rs/zerolog"
)

// Deps are the tables the aggregator reads and writes.
type Deps struct {
	Emails          out.EmailRepository
	Classifications out.ClassificationRepository
	Assignments     out.AssignmentRepository
	AutoReplies     out.AutoReplyRepository
	Escalations     out.EscalationRepository
	Snapshots       out.AnalyticsRepository
	// Archive is optional.
	Archive out.ReportArchive
}

// Aggregator builds AnalyticsSnapshots.
type Aggregator struct {
	deps Deps
	now  func() time.Time
	log  zerolog.Logger
}

func NewAggregator(deps Deps, now func() time.Time, log zerolog.Logger) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{deps: deps, now: now, log: log}
}

// Today returns the snapshot date for the current UTC day.
func (a *Aggregator) Today() time.Time {
	start, _ := domain.DayWindow(a.now())
	return start
}

// Generate recomputes and upserts the snapshot for the UTC day containing day.
func (a *Aggregator) Generate(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	snap, err := a.Compute(ctx, day)
	if err != nil {
		return nil, err
	}

	if err := a.deps.Snapshots.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("upsert analytics: %w", err)
	}

	if a.deps.Archive != nil {
		if err := a.deps.Archive.Save(ctx, snap); err != nil {
			a.log.Warn().Err(err).Str("metric_date", snap.MetricDate.Format(domain.DateFormat)).Msg("analytics archive failed")
		}
	}

	a.log.Info().
		Str("metric_date", snap.MetricDate.Format(domain.DateFormat)).
		Int("total_emails", snap.TotalEmails).
		Int("escalations", snap.Escalations).
		Int("sla_breaches", snap.SLABreaches).
		Msg("analytics generated")
	return snap, nil
}

// Compute builds the snapshot without writing it.
func (a *Aggregator) Compute(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	from, to := domain.DayWindow(day)
	snap := &domain.AnalyticsSnapshot{MetricDate: from}

	var err error
	if snap.TotalEmails, err = a.deps.Emails.CountCreatedBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("count emails: %w", err)
	}
	if snap.ClassifiedEmails, err = a.deps.Classifications.CountClassifiedBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("count classifications: %w", err)
	}
	if snap.AutoRepliesSent, err = a.deps.AutoReplies.CountSentBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("count auto replies: %w", err)
	}
	if snap.Escalations, err = a.deps.Escalations.CountBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("count escalations: %w", err)
	}
	if snap.SLABreaches, err = a.deps.Escalations.CountSLABreachesBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("count sla breaches: %w", err)
	}

	minutes, err := a.deps.Assignments.ResponseMinutesResolvedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("response times: %w", err)
	}
	snap.AvgResponseMinutes = average(minutes)

	if snap.RequestTypeBreakdown, err = a.deps.Classifications.CountByRequestTypeBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("request type breakdown: %w", err)
	}
	if snap.TeamPerformance, err = a.deps.Assignments.TeamPerformanceBetween(ctx, from, to); err != nil {
		return nil, fmt.Errorf("team performance: %w", err)
	}
	if snap.RequestTypeBreakdown == nil {
		snap.RequestTypeBreakdown = map[string]int{}
	}
	if snap.TeamPerformance == nil {
		snap.TeamPerformance = map[string]domain.TeamStats{}
	}

	snap.UpdatedAt = a.now().UTC()
	return snap, nil
}

// Get returns the stored snapshot for day, nil when none was generated.
func (a *Aggregator) Get(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	from, _ := domain.DayWindow(day)
	snap, err := a.deps.Snapshots.GetByDate(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get analytics: %w", err)
	}
	return snap, nil
}

// average returns the mean rounded to two decimals, 0 for no samples.
func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*100) / 100
}
