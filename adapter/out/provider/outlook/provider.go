// Package outlook lists inbox messages through the Microsoft Graph API.
package outlook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"officeflow/core/port/out"
	"officeflow/pkg/resilience"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	graphBaseURL   = "https://graph.microsoft.com/v1.0"
	requestTimeout = 30 * time.Second
)

// Config overrides the Graph transport. Zero value talks to the public API.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Provider implements out.MailProvider for Outlook.
type Provider struct {
	baseURL string
	client  *http.Client
	breaker *resilience.Breaker
	log     zerolog.Logger
}

// NewProvider creates an Outlook provider.
func NewProvider(cfg Config, log zerolog.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = graphBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	bc := resilience.DefaultBreakerConfig("outlook")
	bc.IsClientError = isClientError
	return &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.HTTPClient,
		breaker: resilience.NewBreaker(bc, log),
		log:     log.With().Str("provider", "outlook").Logger(),
	}
}

// GraphError is a non-2xx Graph response.
type GraphError struct {
	StatusCode int
	Body       string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph API error: %d - %s", e.StatusCode, e.Body)
}

type graphMessage struct {
	ID               string         `json:"id"`
	Subject          string         `json:"subject"`
	BodyPreview      string         `json:"bodyPreview"`
	Body             graphBody      `json:"body"`
	From             graphRecipient `json:"from"`
	ReceivedDateTime string         `json:"receivedDateTime"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// ListRecent returns up to limit of the most recently received messages.
func (p *Provider) ListRecent(ctx context.Context, token *oauth2.Token, limit int) ([]out.ProviderMessage, error) {
	params := url.Values{}
	params.Set("$top", strconv.Itoa(limit))
	params.Set("$orderby", "receivedDateTime desc")
	endpoint := p.baseURL + "/me/messages?" + params.Encode()

	return resilience.Execute(p.breaker, func() ([]out.ProviderMessage, error) {
		var resp struct {
			Value []graphMessage `json:"value"`
		}
		if err := p.doGet(ctx, token, endpoint, &resp); err != nil {
			return nil, err
		}

		messages := make([]out.ProviderMessage, len(resp.Value))
		for i := range resp.Value {
			messages[i] = convertMessage(&resp.Value[i])
		}
		return messages, nil
	})
}

func (p *Provider) doGet(ctx context.Context, token *oauth2.Token, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &GraphError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func convertMessage(msg *graphMessage) out.ProviderMessage {
	pm := out.ProviderMessage{
		ExternalID: msg.ID,
		Subject:    msg.Subject,
		Sender:     formatSender(msg.From),
		Body:       msg.Body.Content,
	}
	if pm.Body == "" {
		pm.Body = msg.BodyPreview
	}
	if t, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
		pm.ReceivedAt = t.UTC()
	}
	return pm
}

func formatSender(r graphRecipient) string {
	addr := r.EmailAddress.Address
	if r.EmailAddress.Name == "" || r.EmailAddress.Name == addr {
		return addr
	}
	return fmt.Sprintf("%s <%s>", r.EmailAddress.Name, addr)
}

func isClientError(err error) bool {
	var ge *GraphError
	if !errors.As(err, &ge) {
		return false
	}
	return ge.StatusCode >= 400 && ge.StatusCode < 500 && ge.StatusCode != http.StatusTooManyRequests
}

var _ out.MailProvider = (*Provider)(nil)
