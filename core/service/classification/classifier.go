// Package classification labels an inbound email with a request type,
// urgency and detected task/meeting using one text-generation call.
package classification

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/core/service/catalog"
	"officeflow/pkg/metrics"

	"github.com/rs/zerolog"
)

const (
	DefaultBodyLimit = 3000

	// DefaultConfidence applies when the generated JSON omits a confidence.
	DefaultConfidence = 0.85
	// FallbackConfidence applies when the generated text was unusable.
	FallbackConfidence = 0.5

	DefaultTeam = "General"
)

// Config holds classifier options.
type Config struct {
	BodyLimit int
	Timeout   time.Duration
}

// EmailInput is the part of an email the classifier reads.
type EmailInput struct {
	Sender  string
	Subject string
	Body    string
}

// Result is the classifier's structured label.
type Result struct {
	RequestType     string         `json:"requestType"`
	UrgencyLevel    domain.Urgency `json:"urgencyLevel"`
	Sentiment       string         `json:"sentiment,omitempty"`
	Summary         string         `json:"summary"`
	SuggestedTeam   string         `json:"suggestedTeam"`
	ContainsTask    bool           `json:"containsTask"`
	TaskDescription string         `json:"taskDescription,omitempty"`
	IsMeetingInvite bool           `json:"isMeetingInvite"`
	MeetingTitle    string         `json:"meetingTitle,omitempty"`
	MeetingDateTime string         `json:"meetingDateTime,omitempty"`
	SuggestedReply  string         `json:"suggestedReply,omitempty"`
	Confidence      float64        `json:"confidence"`

	// Fallback is set when the generation call failed or its output could
	// not be parsed and the defaults were used.
	Fallback bool `json:"fallback"`
	// MeetingLink is the regex detector's finding, independent of the call.
	MeetingLink *MeetingLink `json:"meetingLink,omitempty"`
}

// Classifier wraps the text generator. A nil generator always yields the
// default classification.
type Classifier struct {
	gen out.TextGenerator
	cfg Config
	log zerolog.Logger
}

func NewClassifier(gen out.TextGenerator, cfg Config, log zerolog.Logger) *Classifier {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	return &Classifier{gen: gen, cfg: cfg, log: log}
}

// Defaults returns the classification used when nothing better is known.
func Defaults(in EmailInput) Result {
	return Result{
		RequestType:   domain.DefaultRequestType,
		UrgencyLevel:  domain.UrgencyMedium,
		Sentiment:     "neutral",
		Summary:       in.Subject,
		SuggestedTeam: DefaultTeam,
		Confidence:    DefaultConfidence,
	}
}

// Classify never fails: generation or parse errors degrade to the default
// classification so ingestion is never blocked.
func (c *Classifier) Classify(ctx context.Context, in EmailInput, cat *catalog.Catalog) Result {
	link, found := DetectMeetingLink(in.Subject + "\n" + in.Body)

	res := c.generate(ctx, in, cat)
	if found {
		res.MeetingLink = &link
	}
	metrics.RecordClassification(res.Fallback)
	return res
}

func (c *Classifier) generate(ctx context.Context, in EmailInput, cat *catalog.Catalog) Result {
	fallback := Defaults(in)
	fallback.Confidence = FallbackConfidence
	fallback.Fallback = true

	if c.gen == nil {
		return fallback
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	text, err := c.gen.CompleteWithSystem(ctx, systemPrompt, buildPrompt(in, cat, c.cfg.BodyLimit))
	if err != nil {
		c.log.Warn().Err(err).Str("subject", in.Subject).Msg("classification call failed, using defaults")
		return fallback
	}

	res, err := Parse(text, Defaults(in))
	if err != nil {
		c.log.Warn().Err(err).Str("subject", in.Subject).Msg("classification output unparseable, using defaults")
		return fallback
	}
	return res
}

// TruncateBody cuts body to limit runes, marking the cut with "...".
func TruncateBody(body string, limit int) string {
	cut := domain.TruncateRunes(body, limit)
	if len(cut) < len(body) {
		return cut + "..."
	}
	return body
}

func (r Result) String() string {
	return fmt.Sprintf("%s/%s (%.2f)", r.RequestType, r.UrgencyLevel, r.Confidence)
}
