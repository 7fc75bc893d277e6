package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultEscalationContact = "Operations Manager"

// Escalation is filed once per team assignment when its SLA is breached.
type Escalation struct {
	ID               uuid.UUID  `json:"id"`
	TeamAssignmentID uuid.UUID  `json:"team_assignment_id"`
	ClassificationID uuid.UUID  `json:"classification_id"`
	Reason           string     `json:"reason"`
	EscalatedTo      string     `json:"escalated_to"`
	IsSLABreach      bool       `json:"is_sla_breach"`
	ElapsedHours     float64    `json:"elapsed_hours"`
	SLAHours         int        `json:"sla_hours"`
	EscalatedAt      time.Time  `json:"escalated_at"`
	Resolved         bool       `json:"resolved"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// SLABreachReason is the human-readable reason stored on SLA escalations.
func SLABreachReason(elapsedHours float64, slaHours int) string {
	return fmt.Sprintf("SLA breach: %.1f hours elapsed, SLA is %d hours", elapsedHours, slaHours)
}
