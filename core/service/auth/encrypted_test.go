package auth

import (
	"context"
	"testing"
	"time"

	"officeflow/adapter/out/memory"
	"officeflow/core/domain"
	"officeflow/pkg/crypto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptedConnections(t *testing.T) {
	ctx := context.Background()
	raw := memory.NewStore().Connections()
	enc, err := crypto.NewEncryptor([]byte("connection-test-key"))
	require.NoError(t, err)
	conns := NewEncryptedConnections(raw, enc)

	userID := uuid.New()
	conn := &domain.ProviderConnection{
		UserID:       userID,
		Provider:     domain.ProviderGmail,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    fixedNow.Add(time.Hour),
	}
	require.NoError(t, conns.UpdateToken(ctx, conn))
	assert.NotEqual(t, uuid.Nil, conn.ID)
	assert.Equal(t, "access-1", conn.AccessToken, "caller keeps plaintext")

	stored, err := raw.Get(ctx, userID, domain.ProviderGmail)
	require.NoError(t, err)
	assert.True(t, crypto.IsEncrypted(stored.AccessToken))
	assert.True(t, crypto.IsEncrypted(stored.RefreshToken))

	got, err := conns.Get(ctx, userID, domain.ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)

	t.Run("missing connection", func(t *testing.T) {
		got, err := conns.Get(ctx, uuid.New(), domain.ProviderOutlook)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("plaintext rows still readable", func(t *testing.T) {
		legacy := &domain.ProviderConnection{UserID: uuid.New(), Provider: domain.ProviderOutlook, AccessToken: "plain"}
		require.NoError(t, raw.UpdateToken(ctx, legacy))
		got, err := conns.Get(ctx, legacy.UserID, domain.ProviderOutlook)
		require.NoError(t, err)
		assert.Equal(t, "plain", got.AccessToken)
	})
}
