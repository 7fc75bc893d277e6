// Package escalation files an escalation for every unresolved team
// assignment whose SLA has been breached, at most once per assignment.
package escalation

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultSLAHours = 24

// Config holds scanner options.
type Config struct {
	DefaultSLAHours int
	DefaultContact  string
	Now             func() time.Time
}

// ScanResult counts what one sweep did.
type ScanResult struct {
	Checked   int `json:"checked"`
	Breached  int `json:"breached"`
	Escalated int `json:"escalated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Scanner sweeps unresolved assignments. It keeps no state between runs and
// is safe to run concurrently: the repository's conditional insert decides
// which run files the escalation.
type Scanner struct {
	assignments     out.AssignmentRepository
	escalations     out.EscalationRepository
	classifications out.ClassificationRepository
	cfg             Config
	log             zerolog.Logger
}

func NewScanner(assignments out.AssignmentRepository, escalations out.EscalationRepository, classifications out.ClassificationRepository, cfg Config, log zerolog.Logger) *Scanner {
	if cfg.DefaultSLAHours <= 0 {
		cfg.DefaultSLAHours = DefaultSLAHours
	}
	if cfg.DefaultContact == "" {
		cfg.DefaultContact = domain.DefaultEscalationContact
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scanner{
		assignments:     assignments,
		escalations:     escalations,
		classifications: classifications,
		cfg:             cfg,
		log:             log,
	}
}

// Scan runs one sweep. Only a failure to list assignments is returned as an
// error; per-assignment failures are counted and logged.
func (s *Scanner) Scan(ctx context.Context) (ScanResult, error) {
	var res ScanResult

	open, err := s.assignments.ListUnresolved(ctx)
	if err != nil {
		return res, fmt.Errorf("list unresolved assignments: %w", err)
	}

	now := s.cfg.Now().UTC()
	for _, item := range open {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		slaHours, contact := s.policy(item.RequestType)
		elapsed := item.Assignment.ElapsedHours(now)
		if elapsed < float64(slaHours) {
			continue
		}
		res.Breached++

		esc := &domain.Escalation{
			ID:               uuid.New(),
			TeamAssignmentID: item.Assignment.ID,
			ClassificationID: item.Assignment.ClassificationID,
			Reason:           domain.SLABreachReason(elapsed, slaHours),
			EscalatedTo:      contact,
			IsSLABreach:      true,
			ElapsedHours:     elapsed,
			SLAHours:         slaHours,
			EscalatedAt:      now,
		}

		created, err := s.escalations.CreateIfAbsent(ctx, esc)
		if err != nil {
			res.Failed++
			s.log.Error().Err(err).Str("assignment_id", item.Assignment.ID.String()).Msg("escalation insert failed")
			continue
		}
		if !created {
			res.Skipped++
			// 이전 스캔에서 플래그 갱신이 실패했으면 다시 시도
			if !item.ClassificationEscalated {
				s.markEscalated(ctx, item.Assignment.ClassificationID, now)
			}
			continue
		}

		res.Escalated++
		metrics.RecordEscalation()
		s.markEscalated(ctx, item.Assignment.ClassificationID, now)

		s.log.Info().
			Str("assignment_id", item.Assignment.ID.String()).
			Str("team", item.Assignment.TeamName).
			Str("escalated_to", contact).
			Float64("elapsed_hours", elapsed).
			Int("sla_hours", slaHours).
			Msg("assignment escalated")
	}

	return res, nil
}

func (s *Scanner) markEscalated(ctx context.Context, classificationID uuid.UUID, at time.Time) {
	if err := s.classifications.MarkEscalated(ctx, classificationID, at); err != nil {
		s.log.Error().Err(err).Str("classification_id", classificationID.String()).Msg("mark classification escalated failed")
	}
}

func (s *Scanner) policy(rt *domain.RequestType) (int, string) {
	slaHours := s.cfg.DefaultSLAHours
	contact := s.cfg.DefaultContact
	if rt == nil {
		return slaHours, contact
	}
	if rt.SLAHours > 0 {
		slaHours = rt.SLAHours
	}
	if rt.EscalateTo != nil && *rt.EscalateTo != "" {
		contact = *rt.EscalateTo
	}
	return slaHours, contact
}
