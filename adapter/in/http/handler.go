// Package http exposes the pipeline triggers over Fiber.
package http

import (
	"context"
	"time"

	"officeflow/core/domain"
	"officeflow/core/service/escalation"
	"officeflow/core/service/ingest"
	"officeflow/core/service/routing"
	"officeflow/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Ingester interface {
	Ingest(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*ingest.Summary, error)
	Store(ctx context.Context, userID uuid.UUID, in ingest.ManualEmail) (*domain.Email, bool, error)
}

type EmailRouter interface {
	Process(ctx context.Context, userID, emailID uuid.UUID) (*routing.Outcome, error)
}

type EscalationScanner interface {
	Scan(ctx context.Context) (escalation.ScanResult, error)
}

type AnalyticsService interface {
	Generate(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error)
	Get(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error)
	Today() time.Time
}

type TaskService interface {
	UpdateStatus(ctx context.Context, userID, taskID uuid.UUID, status domain.TaskStatus) (*domain.Task, error)
}

type AssignmentService interface {
	Acknowledge(ctx context.Context, id uuid.UUID) (*domain.TeamAssignment, error)
	Resolve(ctx context.Context, id uuid.UUID) (*domain.TeamAssignment, error)
}

type SummaryService interface {
	Generate(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailySummary, error)
}

// GetUserID extracts user_id set by the auth middleware.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperr.Unauthorized("unauthorized")
	}
	return userID, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput(name, "must be a UUID")
	}
	return id, nil
}

// parseBody decodes an optional JSON body. An empty body leaves v untouched.
func parseBody(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	return nil
}

// parseDay reads a YYYY-MM-DD date, today when empty.
func parseDay(value string, today func() time.Time) (time.Time, error) {
	if value == "" {
		return today(), nil
	}
	day, err := time.Parse(domain.DateFormat, value)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("date", "must be YYYY-MM-DD")
	}
	return day, nil
}

func utcToday() time.Time {
	start, _ := domain.DayWindow(time.Now())
	return start
}
