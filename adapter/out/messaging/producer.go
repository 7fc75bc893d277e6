// Package messaging carries pipeline jobs over Redis Streams.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"officeflow/core/port/out"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamEmail    = "officeflow:email"
	StreamPipeline = "officeflow:pipeline"
)

// Streams lists every stream the worker consumes.
var Streams = []string{StreamEmail, StreamPipeline}

// StreamFor routes per-email jobs to the email stream and everything else to
// the pipeline stream.
func StreamFor(jobType string) string {
	if strings.HasPrefix(jobType, "email.") {
		return StreamEmail
	}
	return StreamPipeline
}

// RedisProducer implements out.JobPublisher using Redis Streams.
type RedisProducer struct {
	client *redis.Client
	maxLen int64
}

func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client, maxLen: 100000}
}

// Publish fills in the job id and timestamp when missing and appends it to
// its stream.
func (p *RedisProducer) Publish(ctx context.Context, job *out.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	return p.publish(ctx, StreamFor(job.Type), job)
}

func (p *RedisProducer) publish(ctx context.Context, stream string, job *out.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"type": job.Type,
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

var _ out.JobPublisher = (*RedisProducer)(nil)
