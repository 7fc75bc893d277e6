package persistence

import (
	"context"
	"fmt"
	"time"

	"officeflow/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AutoReplyRepository implements out.AutoReplyRepository
type AutoReplyRepository struct {
	db *sqlx.DB
}

func NewAutoReplyRepository(db *sqlx.DB) *AutoReplyRepository {
	return &AutoReplyRepository{db: db}
}

func (r *AutoReplyRepository) Create(ctx context.Context, a *domain.AutoReply) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO auto_replies (id, email_id, classification_id, recipient, reply_text, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query,
		a.ID, a.EmailID, a.ClassificationID, a.Recipient, a.ReplyText, a.SentAt,
	); err != nil {
		return fmt.Errorf("insert auto reply: %w", err)
	}
	return nil
}

func (r *AutoReplyRepository) CountSentBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM auto_replies WHERE sent_at >= $1 AND sent_at < $2`, from, to,
	); err != nil {
		return 0, fmt.Errorf("count auto replies: %w", err)
	}
	return n, nil
}
