package domain

import (
	"time"

	"github.com/google/uuid"
)

// DailySummary is a per-user digest of one day's activity.
type DailySummary struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	SummaryDate       time.Time `json:"summary_date"`
	EmailsProcessed   int       `json:"emails_processed"`
	TasksPending      int       `json:"tasks_pending"`
	TasksCompleted    int       `json:"tasks_completed"`
	MeetingsScheduled int       `json:"meetings_scheduled"`
	SummaryText       string    `json:"summary_text"`
	UpdatedAt         time.Time `json:"updated_at"`
}
