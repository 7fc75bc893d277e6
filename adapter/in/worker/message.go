package worker

import (
	"time"

	"officeflow/core/port/out"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// JobType represents the type of a job.
type JobType = string

const (
	JobEmailProcess      JobType = "email.process"
	JobEmailIngest       JobType = "email.ingest"
	JobEscalationScan    JobType = "escalation.scan"
	JobAnalyticsGenerate JobType = "analytics.generate"
	JobSummaryGenerate   JobType = "summary.generate"
)

// Message is a job as it travels through the stream and the pool.
type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

func NewMessage(jobType string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Job converts the message to the publisher's wire type.
func (m *Message) Job() *out.Job {
	return &out.Job{
		ID:        m.ID,
		Type:      m.Type,
		Payload:   m.Payload,
		CreatedAt: m.CreatedAt,
		Retries:   m.Retries,
	}
}

// DecodeMessage parses a stream entry produced by the job publisher.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Payloads
type EmailProcessPayload struct {
	UserID  string `json:"user_id"`
	EmailID string `json:"email_id"`
}

type EmailIngestPayload struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
}

type AnalyticsPayload struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD, 비어 있으면 오늘
}

type SummaryPayload struct {
	UserID string `json:"user_id"`
	Date   string `json:"date,omitempty"`
}
