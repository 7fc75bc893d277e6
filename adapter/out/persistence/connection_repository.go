package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"officeflow/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ConnectionRepository implements out.ConnectionRepository
type ConnectionRepository struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

type connectionRow struct {
	ID           uuid.UUID    `db:"id"`
	UserID       uuid.UUID    `db:"user_id"`
	Provider     string       `db:"provider"`
	Email        string       `db:"email"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	ExpiresAt    sql.NullTime `db:"expires_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (r *ConnectionRepository) Get(ctx context.Context, userID uuid.UUID, provider domain.Provider) (*domain.ProviderConnection, error) {
	query := `
		SELECT id, user_id, provider, email, access_token, refresh_token, expires_at, updated_at
		FROM provider_connections
		WHERE user_id = $1 AND provider = $2`

	var row connectionRow
	if err := r.db.GetContext(ctx, &row, query, userID, string(provider)); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return &domain.ProviderConnection{
		ID:           row.ID,
		UserID:       row.UserID,
		Provider:     domain.Provider(row.Provider),
		Email:        row.Email,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    row.ExpiresAt.Time,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

// UpdateToken stores the connection's current tokens, creating the row when
// the user has not connected the provider before.
func (r *ConnectionRepository) UpdateToken(ctx context.Context, c *domain.ProviderConnection) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO provider_connections (id, user_id, provider, email, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`

	var expires sql.NullTime
	if !c.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: c.ExpiresAt, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, string(c.Provider), c.Email, c.AccessToken, c.RefreshToken, expires, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return nil
}
