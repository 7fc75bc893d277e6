package out

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// ProviderMessage is a provider message normalized for ingestion.
type ProviderMessage struct {
	ExternalID string
	Sender     string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// MailProvider lists recent inbox messages for an authorized user.
type MailProvider interface {
	ListRecent(ctx context.Context, token *oauth2.Token, limit int) ([]ProviderMessage, error)
}
