// Package ingest pulls recent messages from a mail provider, stores the new
// ones and hands them to the router.
package ingest

import (
	"context"
	"fmt"
	"iter"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/core/service/routing"
	"officeflow/pkg/apperr"
	"officeflow/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	DefaultPageSize        = 20
	DefaultStoredBodyLimit = 10000
)

// TokenSource resolves a user's provider token.
type TokenSource interface {
	Token(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*oauth2.Token, error)
}

// Router classifies and routes a stored email.
type Router interface {
	ProcessEmail(ctx context.Context, email *domain.Email) (*routing.Outcome, error)
}

type Config struct {
	PageSize        int
	StoredBodyLimit int
	Now             func() time.Time
}

// MessageResult is what happened to one fetched message.
type MessageResult struct {
	ExternalID string
	Email      *domain.Email
	Stored     bool
	Skipped    bool
	Outcome    *routing.Outcome
	Err        error
}

// EmailSummary describes one newly stored email in a Summary.
type EmailSummary struct {
	ID          uuid.UUID `json:"id"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	RequestType string    `json:"requestType,omitempty"`
	Team        string    `json:"team,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Summary aggregates one ingestion run.
type Summary struct {
	Fetched         int            `json:"fetched"`
	Stored          int            `json:"stored"`
	Skipped         int            `json:"skipped"`
	Failed          int            `json:"failed"`
	TasksCreated    int            `json:"tasksCreated"`
	MeetingsCreated int            `json:"meetingsCreated"`
	Emails          []EmailSummary `json:"emails"`
}

// ManualEmail is a single email submitted directly instead of fetched.
type ManualEmail struct {
	ExternalID string
	Sender     string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

type Service struct {
	emails    out.EmailRepository
	providers map[domain.Provider]out.MailProvider
	tokens    TokenSource
	router    Router
	cfg       Config
	log       zerolog.Logger
}

func NewService(emails out.EmailRepository, providers map[domain.Provider]out.MailProvider, tokens TokenSource, router Router, cfg Config, log zerolog.Logger) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.StoredBodyLimit <= 0 {
		cfg.StoredBodyLimit = DefaultStoredBodyLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		emails:    emails,
		providers: providers,
		tokens:    tokens,
		router:    router,
		cfg:       cfg,
		log:       log,
	}
}

// Ingest fetches one page of recent messages and processes each of them.
// Token and listing failures abort the run; per-message failures are counted.
func (s *Service) Ingest(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*Summary, error) {
	mp, ok := s.providers[provider]
	if !ok || mp == nil {
		return nil, apperr.BadRequest(fmt.Sprintf("unsupported provider: %s", provider))
	}

	token, err := s.tokens.Token(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	msgs, err := mp.ListRecent(ctx, token, s.cfg.PageSize)
	if err != nil {
		return nil, apperr.ExternalError(string(provider), err)
	}

	summary := &Summary{Fetched: len(msgs), Emails: []EmailSummary{}}
	for res := range s.Messages(ctx, userID, provider, msgs) {
		summary.add(res)
		metrics.RecordIngest(string(provider), res.label())
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("provider", string(provider)).
		Int("fetched", summary.Fetched).
		Int("stored", summary.Stored).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("ingestion finished")
	return summary, nil
}

// Messages stores and routes msgs one at a time as the sequence is consumed.
// Stopping the iteration early leaves the remaining messages untouched.
func (s *Service) Messages(ctx context.Context, userID uuid.UUID, provider domain.Provider, msgs []out.ProviderMessage) iter.Seq[MessageResult] {
	return func(yield func(MessageResult) bool) {
		for _, m := range msgs {
			if ctx.Err() != nil {
				return
			}
			if !yield(s.handle(ctx, userID, provider, m)) {
				return
			}
		}
	}
}

func (s *Service) handle(ctx context.Context, userID uuid.UUID, provider domain.Provider, m out.ProviderMessage) MessageResult {
	res := MessageResult{ExternalID: m.ExternalID}

	email := s.newEmail(userID, provider, m.ExternalID, m.Sender, m.Subject, m.Body, m.ReceivedAt)
	created, err := s.emails.Create(ctx, email)
	if err != nil {
		res.Err = fmt.Errorf("store email %s: %w", m.ExternalID, err)
		s.log.Error().Err(err).Str("external_id", m.ExternalID).Str("provider", string(provider)).Msg("store email failed")
		return res
	}
	res.Email = email
	if !created {
		res.Skipped = true
		return res
	}
	res.Stored = true

	outcome, err := s.router.ProcessEmail(ctx, email)
	if err != nil {
		if routing.IsAlreadyProcessed(err) {
			res.Skipped = true
			return res
		}
		res.Err = fmt.Errorf("process email %s: %w", email.ID, err)
		s.log.Error().Err(err).Str("email_id", email.ID.String()).Msg("process email failed")
		return res
	}
	res.Outcome = outcome
	return res
}

// Store saves a manually submitted email. It reports false when the same
// external id was already stored for the user; the returned email then
// carries the existing id.
func (s *Service) Store(ctx context.Context, userID uuid.UUID, in ManualEmail) (*domain.Email, bool, error) {
	externalID := in.ExternalID
	if externalID == "" {
		externalID = "manual-" + uuid.NewString()
	}
	email := s.newEmail(userID, domain.ProviderManual, externalID, in.Sender, in.Subject, in.Body, in.ReceivedAt)
	created, err := s.emails.Create(ctx, email)
	if err != nil {
		return nil, false, apperr.DatabaseError("create email", err)
	}
	metrics.RecordIngest(string(domain.ProviderManual), MessageResult{Stored: created, Skipped: !created}.label())
	return email, created, nil
}

func (s *Service) newEmail(userID uuid.UUID, provider domain.Provider, externalID, sender, subject, body string, receivedAt time.Time) *domain.Email {
	now := s.cfg.Now().UTC()
	if receivedAt.IsZero() {
		receivedAt = now
	}
	email := &domain.Email{
		ID:         uuid.New(),
		UserID:     userID,
		ExternalID: externalID,
		Provider:   provider,
		Sender:     sender,
		Subject:    subject,
		Body:       body,
		ReceivedAt: receivedAt.UTC(),
		CreatedAt:  now,
	}
	email.Normalize(s.cfg.StoredBodyLimit)
	return email
}

func (r MessageResult) label() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Skipped:
		return "skipped"
	default:
		return "stored"
	}
}

func (sm *Summary) add(r MessageResult) {
	if r.Stored {
		sm.Stored++
	}
	switch {
	case r.Err != nil:
		sm.Failed++
	case r.Skipped && !r.Stored:
		sm.Skipped++
	}
	if !r.Stored || r.Email == nil {
		return
	}

	entry := EmailSummary{ID: r.Email.ID, Subject: r.Email.Subject, Sender: r.Email.Sender}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}
	if o := r.Outcome; o != nil {
		entry.RequestType = o.Result.RequestType
		entry.Team = o.Team
		if o.TaskCreated {
			sm.TasksCreated++
		}
		if o.MeetingCreated {
			sm.MeetingsCreated++
		}
	}
	sm.Emails = append(sm.Emails, entry)
}
