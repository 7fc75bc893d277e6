package worker

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"
	"officeflow/core/service/escalation"
	"officeflow/core/service/ingest"
	"officeflow/core/service/routing"
	"officeflow/pkg/apperr"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EmailProcessor interface {
	Process(ctx context.Context, userID, emailID uuid.UUID) (*routing.Outcome, error)
}

type Ingester interface {
	Ingest(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*ingest.Summary, error)
}

type EscalationScanner interface {
	Scan(ctx context.Context) (escalation.ScanResult, error)
}

type AnalyticsGenerator interface {
	Generate(ctx context.Context, day time.Time) (*domain.AnalyticsSnapshot, error)
	Today() time.Time
}

type SummaryGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailySummary, error)
}

// Services are the stages a Handler can run. Nil entries reject their jobs.
type Services struct {
	Router    EmailProcessor
	Ingest    Ingester
	Scanner   EscalationScanner
	Analytics AnalyticsGenerator
	Summaries SummaryGenerator
}

// Handler dispatches messages to the pipeline stages.
type Handler struct {
	svc Services
	log zerolog.Logger
}

func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log.With().Str("component", "job_handler").Logger()}
}

func (h *Handler) Process(ctx context.Context, msg *Message) error {
	h.log.Debug().Str("job_id", msg.ID).Str("job_type", msg.Type).Msg("processing job")

	switch msg.Type {
	case JobEmailProcess:
		return h.processEmail(ctx, msg)
	case JobEmailIngest:
		return h.ingest(ctx, msg)
	case JobEscalationScan:
		return h.scan(ctx)
	case JobAnalyticsGenerate:
		return h.analytics(ctx, msg)
	case JobSummaryGenerate:
		return h.summary(ctx, msg)
	default:
		h.log.Warn().Str("job_type", msg.Type).Msg("unknown job type")
		return nil
	}
}

func (h *Handler) processEmail(ctx context.Context, msg *Message) error {
	if h.svc.Router == nil {
		return errMissingService(msg.Type)
	}
	p, err := ParsePayload[EmailProcessPayload](msg)
	if err != nil {
		return err
	}
	userID, err := parseUUID("user_id", p.UserID)
	if err != nil {
		return err
	}
	id, err := parseUUID("email_id", p.EmailID)
	if err != nil {
		return err
	}

	outcome, err := h.svc.Router.Process(ctx, userID, id)
	if routing.IsAlreadyProcessed(err) {
		h.log.Debug().Str("email_id", p.EmailID).Msg("email already classified")
		return nil
	}
	if err != nil {
		return err
	}
	h.log.Info().Str("email_id", p.EmailID).Str("outcome", outcome.String()).Msg("email processed")
	return nil
}

func (h *Handler) ingest(ctx context.Context, msg *Message) error {
	if h.svc.Ingest == nil {
		return errMissingService(msg.Type)
	}
	p, err := ParsePayload[EmailIngestPayload](msg)
	if err != nil {
		return err
	}
	userID, err := parseUUID("user_id", p.UserID)
	if err != nil {
		return err
	}

	sum, err := h.svc.Ingest.Ingest(ctx, userID, domain.Provider(p.Provider))
	if err != nil {
		return err
	}
	h.log.Info().
		Str("user_id", p.UserID).
		Str("provider", p.Provider).
		Int("fetched", sum.Fetched).
		Int("stored", sum.Stored).
		Int("failed", sum.Failed).
		Msg("ingestion finished")
	return nil
}

func (h *Handler) scan(ctx context.Context) error {
	if h.svc.Scanner == nil {
		return errMissingService(JobEscalationScan)
	}
	res, err := h.svc.Scanner.Scan(ctx)
	if err != nil {
		return err
	}
	h.log.Info().
		Int("checked", res.Checked).
		Int("escalated", res.Escalated).
		Int("skipped", res.Skipped).
		Msg("escalation scan finished")
	return nil
}

func (h *Handler) analytics(ctx context.Context, msg *Message) error {
	if h.svc.Analytics == nil {
		return errMissingService(msg.Type)
	}
	p, err := ParsePayload[AnalyticsPayload](msg)
	if err != nil {
		return err
	}
	day, err := parseDay(p.Date, h.svc.Analytics.Today)
	if err != nil {
		return err
	}
	_, err = h.svc.Analytics.Generate(ctx, day)
	return err
}

func (h *Handler) summary(ctx context.Context, msg *Message) error {
	if h.svc.Summaries == nil {
		return errMissingService(msg.Type)
	}
	p, err := ParsePayload[SummaryPayload](msg)
	if err != nil {
		return err
	}
	userID, err := parseUUID("user_id", p.UserID)
	if err != nil {
		return err
	}
	day, err := parseDay(p.Date, func() time.Time { return time.Now().UTC() })
	if err != nil {
		return err
	}
	_, err = h.svc.Summaries.Generate(ctx, userID, day)
	return err
}

// ParsePayload decodes a message payload into T. Decode failures are
// permanent and reported as bad requests.
func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("invalid %s payload: %v", msg.Type, err))
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("invalid %s payload: %v", msg.Type, err))
	}
	return &payload, nil
}

func parseUUID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperr.InvalidInput(field, "must be a UUID")
	}
	return id, nil
}

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

func errMissingService(jobType string) error {
	return apperr.Internal(fmt.Sprintf("no service configured for %s", jobType))
}
