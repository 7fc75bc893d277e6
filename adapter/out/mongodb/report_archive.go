package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"officeflow/core/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionReports = "analytics_reports"

// ReportArchive implements out.ReportArchive. One document per metric date,
// replaced on every regeneration.
type ReportArchive struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewReportArchive(db *mongo.Database) *ReportArchive {
	return &ReportArchive{collection: db.Collection(collectionReports), now: time.Now}
}

// EnsureIndexes creates the unique metric_date index.
func (a *ReportArchive) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "metric_date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "archived_at", Value: -1}},
		},
	}
	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

type teamDocument struct {
	Total    int `bson:"total"`
	Resolved int `bson:"resolved"`
}

type reportDocument struct {
	MetricDate           string                  `bson:"metric_date"`
	TotalEmails          int                     `bson:"total_emails"`
	ClassifiedEmails     int                     `bson:"classified_emails"`
	AutoRepliesSent      int                     `bson:"auto_replies_sent"`
	Escalations          int                     `bson:"escalations"`
	SLABreaches          int                     `bson:"sla_breaches"`
	AvgResponseMinutes   float64                 `bson:"avg_response_time_minutes"`
	RequestTypeBreakdown map[string]int          `bson:"request_types_breakdown"`
	TeamPerformance      map[string]teamDocument `bson:"team_performance"`
	UpdatedAt            time.Time               `bson:"updated_at"`
	ArchivedAt           time.Time               `bson:"archived_at"`
}

func toDocument(s *domain.AnalyticsSnapshot, archivedAt time.Time) *reportDocument {
	doc := &reportDocument{
		MetricDate:           s.MetricDate.UTC().Format(domain.DateFormat),
		TotalEmails:          s.TotalEmails,
		ClassifiedEmails:     s.ClassifiedEmails,
		AutoRepliesSent:      s.AutoRepliesSent,
		Escalations:          s.Escalations,
		SLABreaches:          s.SLABreaches,
		AvgResponseMinutes:   s.AvgResponseMinutes,
		RequestTypeBreakdown: s.RequestTypeBreakdown,
		TeamPerformance:      make(map[string]teamDocument, len(s.TeamPerformance)),
		UpdatedAt:            s.UpdatedAt,
		ArchivedAt:           archivedAt,
	}
	if doc.RequestTypeBreakdown == nil {
		doc.RequestTypeBreakdown = map[string]int{}
	}
	for team, st := range s.TeamPerformance {
		doc.TeamPerformance[team] = teamDocument{Total: st.Total, Resolved: st.Resolved}
	}
	return doc
}

func (d *reportDocument) toDomain() (*domain.AnalyticsSnapshot, error) {
	day, err := time.Parse(domain.DateFormat, d.MetricDate)
	if err != nil {
		return nil, fmt.Errorf("parse metric_date %q: %w", d.MetricDate, err)
	}
	s := &domain.AnalyticsSnapshot{
		MetricDate:           day,
		TotalEmails:          d.TotalEmails,
		ClassifiedEmails:     d.ClassifiedEmails,
		AutoRepliesSent:      d.AutoRepliesSent,
		Escalations:          d.Escalations,
		SLABreaches:          d.SLABreaches,
		AvgResponseMinutes:   d.AvgResponseMinutes,
		RequestTypeBreakdown: d.RequestTypeBreakdown,
		TeamPerformance:      make(map[string]domain.TeamStats, len(d.TeamPerformance)),
		UpdatedAt:            d.UpdatedAt,
	}
	for team, st := range d.TeamPerformance {
		s.TeamPerformance[team] = domain.TeamStats{Total: st.Total, Resolved: st.Resolved}
	}
	return s, nil
}

// Save replaces the archived report for the snapshot's date.
func (a *ReportArchive) Save(ctx context.Context, s *domain.AnalyticsSnapshot) error {
	doc := toDocument(s, a.now().UTC())

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"metric_date": doc.MetricDate}
	if _, err := a.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to archive report: %w", err)
	}
	return nil
}

// Get returns the archived report for day, nil when none exists.
func (a *ReportArchive) Get(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	var doc reportDocument
	err := a.collection.FindOne(ctx, bson.M{"metric_date": day.UTC().Format(domain.DateFormat)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return doc.toDomain()
}
