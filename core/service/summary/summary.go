// Package summary builds the per-user daily digest.
package summary

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Deps struct {
	Emails    out.EmailRepository
	Tasks     out.TaskRepository
	Meetings  out.MeetingRepository
	Summaries out.SummaryRepository
}

type Service struct {
	deps Deps
	now  func() time.Time
	log  zerolog.Logger
}

func NewService(deps Deps, log zerolog.Logger) *Service {
	return &Service{deps: deps, now: time.Now, log: log}
}

// Generate recomputes and upserts the user's summary for the UTC day
// containing day. Task counts are the user's current totals.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.DailySummary, error) {
	from, to := domain.DayWindow(day)

	emails, err := s.deps.Emails.CountForUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, apperr.DatabaseError("count emails", err)
	}
	byStatus, err := s.deps.Tasks.CountByStatusForUser(ctx, userID)
	if err != nil {
		return nil, apperr.DatabaseError("count tasks", err)
	}
	meetings, err := s.deps.Meetings.CountStartingForUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, apperr.DatabaseError("count meetings", err)
	}

	d := &domain.DailySummary{
		ID:                uuid.New(),
		UserID:            userID,
		SummaryDate:       from,
		EmailsProcessed:   emails,
		TasksPending:      byStatus[domain.TaskStatusPending],
		TasksCompleted:    byStatus[domain.TaskStatusCompleted],
		MeetingsScheduled: meetings,
		UpdatedAt:         s.now().UTC(),
	}
	d.SummaryText = Render(d)

	if err := s.deps.Summaries.Upsert(ctx, d); err != nil {
		return nil, apperr.DatabaseError("upsert summary", err)
	}

	s.log.Debug().Str("user_id", userID.String()).Str("date", from.Format(domain.DateFormat)).Msg("daily summary generated")
	return d, nil
}

// Render is the one-line text stored with a summary.
func Render(d *domain.DailySummary) string {
	return fmt.Sprintf("Processed %s. %d %s pending, %d completed. %s today.",
		plural(d.EmailsProcessed, "email"),
		d.TasksPending, noun(d.TasksPending, "task"),
		d.TasksCompleted,
		plural(d.MeetingsScheduled, "meeting"),
	)
}

func plural(n int, word string) string {
	return fmt.Sprintf("%d %s", n, noun(n, word))
}

func noun(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
