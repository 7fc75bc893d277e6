// Package assignment is the manual resolution surface for team assignments.
// No pipeline stage resolves assignments on its own.
package assignment

import (
	"context"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	assignments out.AssignmentRepository
	escalations out.EscalationRepository
	now         func() time.Time
	log         zerolog.Logger
}

func NewService(assignments out.AssignmentRepository, escalations out.EscalationRepository, log zerolog.Logger) *Service {
	return &Service{
		assignments: assignments,
		escalations: escalations,
		now:         time.Now,
		log:         log,
	}
}

// Acknowledge marks the assignment acknowledged. Repeating it keeps the
// first timestamp.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID) (*domain.TeamAssignment, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Acknowledged {
		return a, nil
	}

	a.Acknowledge(s.now().UTC())
	if err := s.assignments.Update(ctx, a); err != nil {
		return nil, apperr.DatabaseError("update assignment", err)
	}
	return a, nil
}

// Resolve closes the assignment, records its response time and resolves the
// escalation filed for it, if any.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*domain.TeamAssignment, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Resolved {
		return a, nil
	}

	now := s.now().UTC()
	a.Resolve(now)
	if err := s.assignments.Update(ctx, a); err != nil {
		return nil, apperr.DatabaseError("update assignment", err)
	}

	esc, err := s.escalations.GetByAssignmentID(ctx, a.ID)
	if err != nil {
		s.log.Error().Err(err).Str("assignment_id", a.ID.String()).Msg("escalation lookup failed")
		return a, nil
	}
	if esc != nil && !esc.Resolved {
		if err := s.escalations.Resolve(ctx, esc.ID, now); err != nil {
			s.log.Error().Err(err).Str("escalation_id", esc.ID.String()).Msg("escalation resolve failed")
		}
	}

	s.log.Info().
		Str("assignment_id", a.ID.String()).
		Str("team", a.TeamName).
		Float64("response_minutes", *a.ResponseTimeMinutes).
		Msg("assignment resolved")
	return a, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*domain.TeamAssignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.DatabaseError("get assignment", err)
	}
	if a == nil {
		return nil, apperr.NotFound("assignment")
	}
	return a, nil
}
