package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TeamAssignment links an email to the team responsible for it.
type TeamAssignment struct {
	ID                  uuid.UUID  `json:"id"`
	EmailID             uuid.UUID  `json:"email_id"`
	ClassificationID    uuid.UUID  `json:"classification_id"`
	TeamName            string     `json:"team_name"`
	AssignedAt          time.Time  `json:"assigned_at"`
	Acknowledged        bool       `json:"acknowledged"`
	AcknowledgedAt      *time.Time `json:"acknowledged_at,omitempty"`
	Resolved            bool       `json:"resolved"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	ResponseTimeMinutes *float64   `json:"response_time_minutes,omitempty"`
}

// ElapsedHours is the time since assignment in fractional hours.
func (a *TeamAssignment) ElapsedHours(now time.Time) float64 {
	return now.Sub(a.AssignedAt).Hours()
}

// Resolve marks the assignment resolved at now and records the response time.
func (a *TeamAssignment) Resolve(now time.Time) {
	a.Resolved = true
	a.ResolvedAt = &now
	minutes := math.Round(now.Sub(a.AssignedAt).Minutes()*100) / 100
	a.ResponseTimeMinutes = &minutes
	if !a.Acknowledged {
		a.Acknowledge(now)
	}
}

// Acknowledge marks the assignment acknowledged at now.
func (a *TeamAssignment) Acknowledge(now time.Time) {
	a.Acknowledged = true
	a.AcknowledgedAt = &now
}

// OverdueAssignment is an unresolved assignment joined with the request type
// its classification matched (nil when unmatched or lookup failed).
// ClassificationEscalated mirrors the classification's escalated flag.
type OverdueAssignment struct {
	Assignment              TeamAssignment
	RequestType             *RequestType
	ClassificationEscalated bool
}
