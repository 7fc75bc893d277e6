// Package routing turns a classification into a team assignment plus the
// optional task, meeting and drafted auto-reply.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/core/service/catalog"
	"officeflow/core/service/classification"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrAlreadyProcessed is returned when the email already has a classification.
var ErrAlreadyProcessed = apperr.Conflict("email already processed")

const DefaultMeetingMinutes = 60

// CatalogSource loads the current request-type catalog.
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Config holds router options.
type Config struct {
	DefaultMeetingMinutes int
	AutoReplyEnabled      bool
	Now                   func() time.Time
}

// Deps are the collaborators of the router.
type Deps struct {
	Emails          out.EmailRepository
	Classifications out.ClassificationRepository
	Assignments     out.AssignmentRepository
	Tasks           out.TaskRepository
	Meetings        out.MeetingRepository
	AutoReplies     out.AutoReplyRepository
	Catalog         CatalogSource
	Classifier      *classification.Classifier
}

// Outcome summarizes one email's pass through the pipeline.
type Outcome struct {
	EmailID          uuid.UUID              `json:"emailId"`
	Classification   *domain.Classification `json:"classification"`
	Result           classification.Result  `json:"result"`
	Team             string                 `json:"team"`
	AssignmentID     *uuid.UUID             `json:"assignmentId,omitempty"`
	TaskCreated      bool                   `json:"taskCreated"`
	MeetingCreated   bool                   `json:"meetingCreated"`
	AutoReplyCreated bool                   `json:"autoReplyCreated"`
	FailedSteps      []string               `json:"failedSteps,omitempty"`
}

// Service runs the classifier and the routing steps for stored emails.
type Service struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger
}

func NewService(deps Deps, cfg Config, log zerolog.Logger) *Service {
	if cfg.DefaultMeetingMinutes <= 0 {
		cfg.DefaultMeetingMinutes = DefaultMeetingMinutes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{deps: deps, cfg: cfg, log: log}
}

// Process classifies a stored email owned by userID and routes it. An email
// owned by someone else is reported as not found. The classification is the
// only write that aborts the stage; every later step logs and continues.
func (s *Service) Process(ctx context.Context, userID, emailID uuid.UUID) (*Outcome, error) {
	email, err := s.deps.Emails.GetByID(ctx, emailID)
	if err != nil {
		return nil, apperr.DatabaseError("get email", err)
	}
	if email == nil || email.UserID != userID {
		return nil, apperr.NotFound("email")
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessEmail is Process for an email already in hand.
func (s *Service) ProcessEmail(ctx context.Context, email *domain.Email) (*Outcome, error) {
	existing, err := s.deps.Classifications.GetByEmailID(ctx, email.ID)
	if err != nil {
		return nil, apperr.DatabaseError("get classification", err)
	}
	if existing != nil {
		return nil, ErrAlreadyProcessed
	}

	cat, err := s.deps.Catalog.Load(ctx)
	if err != nil {
		// 카탈로그 없이도 분류는 진행 (fallback 팀으로 라우팅)
		s.log.Warn().Err(err).Str("email_id", email.ID.String()).Msg("catalog unavailable, routing without it")
		cat = catalog.New(nil)
	}

	res := s.deps.Classifier.Classify(ctx, classification.EmailInput{
		Sender:  email.Sender,
		Subject: email.Subject,
		Body:    email.Body,
	}, cat)

	matched, _ := cat.Match(res.RequestType)
	now := s.cfg.Now().UTC()

	cls := &domain.Classification{
		ID:              uuid.New(),
		EmailID:         email.ID,
		RequestTypeName: res.RequestType,
		Urgency:         res.UrgencyLevel,
		Confidence:      res.Confidence,
		Summary:         res.Summary,
		RoutingTeam:     selectTeam(matched, res),
		ClassifiedAt:    now,
	}
	if matched != nil && matched.ID != uuid.Nil {
		id := matched.ID
		cls.RequestTypeID = &id
	}

	created, err := s.deps.Classifications.Create(ctx, cls)
	if err != nil {
		return nil, apperr.DatabaseError("create classification", err)
	}
	if !created {
		return nil, ErrAlreadyProcessed
	}

	hasTask := wantsTask(res)
	if err := s.deps.Emails.MarkProcessed(ctx, email.ID, res.Summary, hasTask); err != nil {
		s.stepFailed(email.ID, "mark_processed", err)
	} else {
		email.IsProcessed = true
		email.HasTask = hasTask
		email.Summary = &res.Summary
	}

	outcome := s.Route(ctx, email, cls, res, matched)
	return outcome, nil
}

// Route performs the routing steps for a classified email. Each step is
// independent; a failure is recorded on the outcome and the next step runs.
func (s *Service) Route(ctx context.Context, email *domain.Email, cls *domain.Classification, res classification.Result, matched *domain.RequestType) *Outcome {
	now := s.cfg.Now().UTC()
	outcome := &Outcome{
		EmailID:        email.ID,
		Classification: cls,
		Result:         res,
		Team:           cls.RoutingTeam,
	}

	assignment := &domain.TeamAssignment{
		ID:               uuid.New(),
		EmailID:          email.ID,
		ClassificationID: cls.ID,
		TeamName:         cls.RoutingTeam,
		AssignedAt:       now,
	}
	if err := s.deps.Assignments.Create(ctx, assignment); err != nil {
		s.fail(outcome, "team_assignment", err)
	} else {
		outcome.AssignmentID = &assignment.ID
	}

	if task := buildTask(email, res, matched, now); task != nil {
		if err := s.deps.Tasks.Create(ctx, task); err != nil {
			s.fail(outcome, "task", err)
		} else {
			outcome.TaskCreated = true
		}
	}

	if meeting := buildMeeting(email, res, now, s.cfg.DefaultMeetingMinutes); meeting != nil {
		if err := s.deps.Meetings.Create(ctx, meeting); err != nil {
			s.fail(outcome, "meeting", err)
		} else {
			outcome.MeetingCreated = true
		}
	}

	if s.cfg.AutoReplyEnabled {
		reply := buildAutoReply(email, cls, res, matched, now)
		if err := s.deps.AutoReplies.Create(ctx, reply); err != nil {
			s.fail(outcome, "auto_reply", err)
		} else {
			outcome.AutoReplyCreated = true
			if err := s.deps.Classifications.MarkAutoReplySent(ctx, cls.ID); err != nil {
				s.fail(outcome, "auto_reply_flag", err)
			} else {
				cls.AutoReplySent = true
			}
		}
	}

	s.log.Info().
		Str("email_id", email.ID.String()).
		Str("request_type", res.RequestType).
		Str("urgency", string(res.UrgencyLevel)).
		Str("team", outcome.Team).
		Bool("fallback", res.Fallback).
		Bool("task", outcome.TaskCreated).
		Bool("meeting", outcome.MeetingCreated).
		Msg("email routed")

	return outcome
}

func (s *Service) fail(o *Outcome, step string, err error) {
	o.FailedSteps = append(o.FailedSteps, step)
	s.stepFailed(o.EmailID, step, err)
}

func (s *Service) stepFailed(emailID uuid.UUID, step string, err error) {
	recordStepFailure(step)
	s.log.Error().Err(err).Str("email_id", emailID.String()).Str("step", step).Msg("routing step failed")
}

// IsAlreadyProcessed reports whether err means the email was classified before.
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

func (o *Outcome) String() string {
	return fmt.Sprintf("email=%s team=%s task=%v meeting=%v reply=%v", o.EmailID, o.Team, o.TaskCreated, o.MeetingCreated, o.AutoReplyCreated)
}
