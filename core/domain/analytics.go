package domain

import "time"

// TeamStats is the per-team entry of an analytics snapshot.
type TeamStats struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
}

// AnalyticsSnapshot holds one day of recomputed counters. MetricDate is the
// UTC midnight of the day it describes.
type AnalyticsSnapshot struct {
	MetricDate           time.Time            `json:"metric_date"`
	TotalEmails          int                  `json:"total_emails"`
	ClassifiedEmails     int                  `json:"classified_emails"`
	AutoRepliesSent      int                  `json:"auto_replies_sent"`
	Escalations          int                  `json:"escalations"`
	SLABreaches          int                  `json:"sla_breaches"`
	AvgResponseMinutes   float64              `json:"avg_response_time_minutes"`
	RequestTypeBreakdown map[string]int       `json:"request_types_breakdown"`
	TeamPerformance      map[string]TeamStats `json:"team_performance"`
	UpdatedAt            time.Time            `json:"updated_at"` // bookkeeping, not a metric
}

// DayWindow returns the [start, end) UTC window of the day containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// DateFormat is the layout used for metric dates on the wire.
const DateFormat = "2006-01-02"
