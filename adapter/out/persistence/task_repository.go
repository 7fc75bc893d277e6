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

// TaskRepository implements out.TaskRepository
type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type taskRow struct {
	ID          uuid.UUID     `db:"id"`
	UserID      uuid.UUID     `db:"user_id"`
	EmailID     uuid.NullUUID `db:"email_id"`
	Title       string        `db:"title"`
	Description string        `db:"description"`
	Priority    string        `db:"priority"`
	Status      string        `db:"status"`
	DueDate     sql.NullTime  `db:"due_date"`
	CompletedAt sql.NullTime  `db:"completed_at"`
	CreatedAt   time.Time     `db:"created_at"`
}

func (r *taskRow) toDomain() *domain.Task {
	return &domain.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		EmailID:     r.EmailID.UUID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    domain.TaskPriority(r.Priority),
		Status:      domain.TaskStatus(r.Status),
		DueDate:     timePtr(r.DueDate),
		CompletedAt: timePtr(r.CompletedAt),
		CreatedAt:   r.CreatedAt,
	}
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tasks (id, user_id, email_id, title, description, priority, status, due_date, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var emailID uuid.NullUUID
	if t.EmailID != uuid.Nil {
		emailID = uuid.NullUUID{UUID: t.EmailID, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, emailID, t.Title, t.Description, string(t.Priority), string(t.Status),
		nullTime(t.DueDate), nullTime(t.CompletedAt), t.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, user_id, email_id, title, description, priority, status,
		       due_date, completed_at, created_at
		FROM tasks
		WHERE id = $1`

	var row taskRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return row.toDomain(), nil
}

func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, priority = $4, status = $5, due_date = $6, completed_at = $7
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status), nullTime(t.DueDate), nullTime(t.CompletedAt),
	)
	if err := affected(res, err); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *TaskRepository) CountByStatusForUser(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM tasks WHERE user_id = $1 GROUP BY status`, userID,
	); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	out := make(map[domain.TaskStatus]int, len(rows))
	for _, row := range rows {
		out[domain.TaskStatus(row.Status)] = row.Count
	}
	return out, nil
}
