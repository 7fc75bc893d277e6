package out

import (
	"context"
	"time"
)

// Job is a unit of work routed through the job stream.
type Job struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

// JobPublisher enqueues jobs for the worker.
type JobPublisher interface {
	Publish(ctx context.Context, job *Job) error
}
