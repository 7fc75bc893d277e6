package task

import (
	"context"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"
	"officeflow/pkg/apperr"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound  = apperr.NotFound("task")
	ErrUnauthorized  = apperr.Forbidden("task belongs to another user")
	ErrInvalidStatus = apperr.InvalidInput("status", "must be pending or completed")
)

// Service changes task status on behalf of the task's owner.
type Service struct {
	tasks out.TaskRepository
	now   func() time.Time
}

func NewService(tasks out.TaskRepository) *Service {
	return &Service{tasks: tasks, now: time.Now}
}

func (s *Service) Get(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperr.DatabaseError("get task", err)
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	if t.UserID != userID {
		return nil, ErrUnauthorized
	}
	return t, nil
}

// UpdateStatus toggles the task between pending and completed.
func (s *Service) UpdateStatus(ctx context.Context, userID, taskID uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	t, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status == status {
		return t, nil
	}

	t.SetStatus(status, s.now().UTC())
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, apperr.DatabaseError("update task", err)
	}
	return t, nil
}
