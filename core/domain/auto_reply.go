package domain

import (
	"time"

	"github.com/google/uuid"
)

// AutoReply is a drafted reply. Delivery happens outside this service.
type AutoReply struct {
	ID               uuid.UUID `json:"id"`
	EmailID          uuid.UUID `json:"email_id"`
	ClassificationID uuid.UUID `json:"classification_id"`
	Recipient        string    `json:"recipient"`
	ReplyText        string    `json:"reply_text"`
	SentAt           time.Time `json:"sent_at"`
}
