package http

import (
	"officeflow/core/domain"
	"officeflow/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// WorkHandler exposes the state changes that happen outside the pipeline:
// task completion and assignment acknowledgement or resolution.
type WorkHandler struct {
	tasks       TaskService
	assignments AssignmentService
}

func NewWorkHandler(tasks TaskService, assignments AssignmentService) *WorkHandler {
	return &WorkHandler{tasks: tasks, assignments: assignments}
}

func (h *WorkHandler) Register(app fiber.Router) {
	app.Patch("/tasks/:id/status", h.UpdateTaskStatus)
	app.Post("/assignments/:id/acknowledge", h.Acknowledge)
	app.Post("/assignments/:id/resolve", h.Resolve)
}

type taskStatusRequest struct {
	Status string `json:"status"`
}

func (h *WorkHandler) UpdateTaskStatus(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	taskID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req taskStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Status == "" {
		return apperr.MissingField("status")
	}

	task, err := h.tasks.UpdateStatus(c.UserContext(), userID, taskID, domain.TaskStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(task)
}

func (h *WorkHandler) Acknowledge(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.assignments.Acknowledge(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *WorkHandler) Resolve(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.assignments.Resolve(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(a)
}
