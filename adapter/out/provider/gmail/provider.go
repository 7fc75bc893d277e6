// Package gmail lists inbox messages through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"officeflow/core/port/out"
	"officeflow/pkg/resilience"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const requestTimeout = 30 * time.Second

// Config overrides the API transport. Zero value talks to the public API.
type Config struct {
	Endpoint   string
	HTTPClient *http.Client
}

// Provider implements out.MailProvider for Gmail.
type Provider struct {
	cfg     Config
	breaker *resilience.Breaker
	log     zerolog.Logger
}

// NewProvider creates a Gmail provider.
func NewProvider(cfg Config, log zerolog.Logger) *Provider {
	bc := resilience.DefaultBreakerConfig("gmail")
	bc.IsClientError = isClientError
	return &Provider{
		cfg:     cfg,
		breaker: resilience.NewBreaker(bc, log),
		log:     log.With().Str("provider", "gmail").Logger(),
	}
}

// ListRecent returns up to limit of the most recent INBOX messages. A message
// whose detail fetch fails is left out; only a failed listing is an error.
func (p *Provider) ListRecent(ctx context.Context, token *oauth2.Token, limit int) ([]out.ProviderMessage, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	svc, err := p.service(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return resilience.Execute(p.breaker, func() ([]out.ProviderMessage, error) {
		list, err := svc.Users.Messages.List("me").
			LabelIds("INBOX").
			MaxResults(int64(limit)).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("gmail list messages: %w", err)
		}

		messages := make([]out.ProviderMessage, 0, len(list.Messages))
		for _, ref := range list.Messages {
			msg, err := svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("gmail get message %s: %w", ref.Id, ctx.Err())
				}
				// 상세 조회 실패는 해당 메시지만 건너뜀
				p.log.Warn().Err(err).Str("message_id", ref.Id).Msg("gmail get message failed, skipping")
				continue
			}
			messages = append(messages, convertMessage(msg))
		}
		return messages, nil
	})
}

func (p *Provider) service(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	var opts []option.ClientOption
	if p.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(p.cfg.HTTPClient))
	} else {
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	}
	if p.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.cfg.Endpoint))
	}
	return gmail.NewService(ctx, opts...)
}

func convertMessage(msg *gmail.Message) out.ProviderMessage {
	pm := out.ProviderMessage{ExternalID: msg.Id}
	if msg.Payload == nil {
		pm.Body = msg.Snippet
		pm.ReceivedAt = internalDate(msg.InternalDate)
		return pm
	}

	pm.Sender = getHeader(msg.Payload.Headers, "From")
	pm.Subject = getHeader(msg.Payload.Headers, "Subject")

	if date := getHeader(msg.Payload.Headers, "Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			pm.ReceivedAt = t.UTC()
		}
	}
	if pm.ReceivedAt.IsZero() {
		pm.ReceivedAt = internalDate(msg.InternalDate)
	}

	// text/plain 우선, 없으면 html, 그것도 없으면 snippet
	pm.Body = extractBody(msg.Payload, "text/plain")
	if pm.Body == "" {
		pm.Body = extractBody(msg.Payload, "text/html")
	}
	if pm.Body == "" {
		pm.Body = msg.Snippet
	}
	return pm
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody walks the part tree depth-first and returns the first part of
// the given MIME type with a decodable body.
func extractBody(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		if decoded, ok := decodeData(part.Body.Data); ok {
			return decoded
		}
	}
	for _, child := range part.Parts {
		if body := extractBody(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeData(data string) (string, bool) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b), true
	}
	return "", false
}

func internalDate(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// 4xx는 호출자 문제라 breaker 실패로 세지 않음 (429 제외)
func isClientError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
}

var _ out.MailProvider = (*Provider)(nil)
