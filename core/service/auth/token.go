// Package auth hands out provider access tokens, refreshing them lazily.
package auth

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"golang.org/x/sync/singleflight"
)

// RefreshMargin is how close to expiry a token is refreshed before use.
const RefreshMargin = 5 * time.Minute

var (
	GmailScopes   = []string{"https://www.googleapis.com/auth/gmail.readonly"}
	OutlookScopes = []string{"offline_access", "https://graph.microsoft.com/Mail.Read"}
)

// GoogleConfig builds the OAuth config for Gmail connections.
func GoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       GmailScopes,
		Endpoint:     google.Endpoint,
	}
}

// MicrosoftConfig builds the OAuth config for Outlook connections.
func MicrosoftConfig(clientID, clientSecret, redirectURL, tenantID string) *oauth2.Config {
	if tenantID == "" {
		tenantID = "common"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       OutlookScopes,
		Endpoint:     microsoft.AzureADEndpoint(tenantID),
	}
}

// TokenService resolves stored connections into usable tokens.
//
// Concurrent refreshes for the same connection inside one process share a
// single token request. Two processes may still both refresh; the later
// write wins.
type TokenService struct {
	conns   out.ConnectionRepository
	configs map[domain.Provider]*oauth2.Config
	group   singleflight.Group
	now     func() time.Time
	log     zerolog.Logger
}

func NewTokenService(conns out.ConnectionRepository, configs map[domain.Provider]*oauth2.Config, log zerolog.Logger) *TokenService {
	return &TokenService{
		conns:   conns,
		configs: configs,
		now:     time.Now,
		log:     log,
	}
}

// Token returns a token for the user's provider connection, refreshing and
// persisting it first when it expires within RefreshMargin.
func (s *TokenService) Token(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*oauth2.Token, error) {
	conn, err := s.conns.Get(ctx, userID, provider)
	if err != nil {
		return nil, apperr.DatabaseError("get connection", err)
	}
	if conn == nil {
		return nil, apperr.NotConnected(string(provider))
	}

	if !conn.NeedsRefresh(s.now(), RefreshMargin) {
		return toToken(conn), nil
	}

	key := userID.String() + ":" + string(provider)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.refresh(ctx, conn)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (s *TokenService) refresh(ctx context.Context, conn *domain.ProviderConnection) (*oauth2.Token, error) {
	cfg, ok := s.configs[conn.Provider]
	if !ok || cfg == nil {
		return nil, apperr.Internal(fmt.Sprintf("%s oauth not configured", conn.Provider))
	}
	if conn.RefreshToken == "" {
		return nil, apperr.NotConnected(string(conn.Provider))
	}

	// access token을 비워야 TokenSource가 실제로 refresh 요청을 보냄
	fresh, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken}).Token()
	if err != nil {
		return nil, apperr.ExternalError(string(conn.Provider), fmt.Errorf("refresh token: %w", err))
	}

	conn.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		conn.RefreshToken = fresh.RefreshToken
	}
	conn.ExpiresAt = fresh.Expiry
	conn.UpdatedAt = s.now().UTC()
	if err := s.conns.UpdateToken(ctx, conn); err != nil {
		return nil, apperr.DatabaseError("update token", err)
	}

	s.log.Debug().
		Str("user_id", conn.UserID.String()).
		Str("provider", string(conn.Provider)).
		Time("expires_at", conn.ExpiresAt).
		Msg("provider token refreshed")
	return toToken(conn), nil
}

func toToken(c *domain.ProviderConnection) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiresAt,
	}
}
