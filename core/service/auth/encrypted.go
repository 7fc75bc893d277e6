package auth

import (
	"context"
	"fmt"

	"officeflow/core/domain"
	"officeflow/core/port/out"

	"github.com/google/uuid"
)

// Cipher seals credential strings.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(value string) (string, error)
}

// EncryptedConnections wraps a ConnectionRepository so tokens are only ever
// stored encrypted.
type EncryptedConnections struct {
	next   out.ConnectionRepository
	cipher Cipher
}

func NewEncryptedConnections(next out.ConnectionRepository, cipher Cipher) *EncryptedConnections {
	return &EncryptedConnections{next: next, cipher: cipher}
}

func (r *EncryptedConnections) Get(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*domain.ProviderConnection, error) {
	conn, err := r.next.Get(ctx, userID, provider)
	if err != nil || conn == nil {
		return conn, err
	}
	if conn.AccessToken, err = r.cipher.Decrypt(conn.AccessToken); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if conn.RefreshToken, err = r.cipher.Decrypt(conn.RefreshToken); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return conn, nil
}

// UpdateToken encrypts a copy so the caller keeps the plaintext values.
func (r *EncryptedConnections) UpdateToken(ctx context.Context, c *domain.ProviderConnection) error {
	sealed := *c
	var err error
	if sealed.AccessToken, err = r.cipher.Encrypt(c.AccessToken); err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	if sealed.RefreshToken, err = r.cipher.Encrypt(c.RefreshToken); err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}
	if err := r.next.UpdateToken(ctx, &sealed); err != nil {
		return err
	}
	// 새로 생성된 row의 ID를 호출자에게 돌려줌
	c.ID = sealed.ID
	c.UpdatedAt = sealed.UpdatedAt
	return nil
}

var _ out.ConnectionRepository = (*EncryptedConnections)(nil)
