package domain

import (
	"time"

	"github.com/google/uuid"
)

// MeetingProvider is the video-conferencing service behind a join URL.
type MeetingProvider string

const (
	MeetingZoom   MeetingProvider = "zoom"
	MeetingTeams  MeetingProvider = "teams"
	MeetingMeet   MeetingProvider = "meet"
	MeetingWebex  MeetingProvider = "webex"
	MeetingInvite MeetingProvider = "invite"
)

// Meeting is informational; start/end are heuristics, not calendar-authoritative.
type Meeting struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	EmailID     uuid.UUID        `json:"email_id"`
	Title       string           `json:"title"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	JoinURL     *string          `json:"join_url,omitempty"`
	Provider    MeetingProvider  `json:"provider"`
	Attendees   MeetingAttendees `json:"attendees"`
	ExternalRef string           `json:"external_ref"`
	CreatedAt   time.Time        `json:"created_at"`
}

// MeetingAttendees records where the meeting was detected.
type MeetingAttendees struct {
	Source string          `json:"source"`
	Type   MeetingProvider `json:"type"`
}
