package domain

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies where an email came from.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
	ProviderManual  Provider = "manual"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderGmail, ProviderOutlook, ProviderManual:
		return true
	}
	return false
}

const (
	DefaultSubject = "(No Subject)"
	UnknownSender  = "unknown"
)

// Email is an ingested message. Unique per (UserID, ExternalID).
type Email struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ExternalID  string    `json:"external_id"`
	Provider    Provider  `json:"provider"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
	IsProcessed bool      `json:"is_processed"`
	HasTask     bool      `json:"has_task"`
	Summary     *string   `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Normalize fills the placeholder sender/subject and caps the stored body.
func (e *Email) Normalize(bodyLimit int) {
	if e.Subject == "" {
		e.Subject = DefaultSubject
	}
	if e.Sender == "" {
		e.Sender = UnknownSender
	}
	if bodyLimit > 0 {
		e.Body = TruncateRunes(e.Body, bodyLimit)
	}
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
