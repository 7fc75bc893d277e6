package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Urgency is the four-value ordinal scale attached to a classification.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency normalizes s; anything outside the scale is medium.
func ParseUrgency(s string) Urgency {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u
	}
	return UrgencyMedium
}

// TaskPriority maps urgency to task priority. Tasks have no critical level.
func (u Urgency) TaskPriority() TaskPriority {
	switch u {
	case UrgencyCritical, UrgencyHigh:
		return TaskPriorityHigh
	case UrgencyLow:
		return TaskPriorityLow
	default:
		return TaskPriorityMedium
	}
}

const DefaultRequestType = "General"

// Classification is the classifier's label for one email.
type Classification struct {
	ID              uuid.UUID  `json:"id"`
	EmailID         uuid.UUID  `json:"email_id"`
	RequestTypeID   *uuid.UUID `json:"request_type_id,omitempty"`
	RequestTypeName string     `json:"request_type_name"`
	Urgency         Urgency    `json:"urgency"`
	Confidence      float64    `json:"confidence"`
	Summary         string     `json:"summary"`
	RoutingTeam     string     `json:"routing_team"`
	AutoReplySent   bool       `json:"auto_reply_sent"`
	Escalated       bool       `json:"escalated"`
	EscalationTime  *time.Time `json:"escalation_time,omitempty"`
	ClassifiedAt    time.Time  `json:"classified_at"`
}
