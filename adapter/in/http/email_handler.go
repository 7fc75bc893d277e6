package http

import (
	"time"

	"officeflow/core/domain"
	"officeflow/core/service/ingest"
	"officeflow/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EmailHandler struct {
	ingest Ingester
	router EmailRouter
}

func NewEmailHandler(ingest Ingester, router EmailRouter) *EmailHandler {
	return &EmailHandler{ingest: ingest, router: router}
}

func (h *EmailHandler) Register(app fiber.Router) {
	emails := app.Group("/emails")

	emails.Post("/", h.Create)               // 수동 등록 (저장만)
	emails.Post("/process", h.Process)       // 분류 + 라우팅
	emails.Post("/fetch/:provider", h.Fetch) // gmail | outlook
}

type createEmailRequest struct {
	ExternalID string     `json:"externalId"`
	Sender     string     `json:"sender"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	ReceivedAt *time.Time `json:"receivedAt"`
}

func (h *EmailHandler) Create(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req createEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Subject == "" && req.Body == "" {
		return apperr.MissingField("body")
	}

	in := ingest.ManualEmail{
		ExternalID: req.ExternalID,
		Sender:     req.Sender,
		Subject:    req.Subject,
		Body:       req.Body,
	}
	if req.ReceivedAt != nil {
		in.ReceivedAt = *req.ReceivedAt
	}

	email, stored, err := h.ingest.Store(c.UserContext(), userID, in)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if stored {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"stored":  stored,
		"emailId": email.ID,
	})
}

type processEmailRequest struct {
	EmailID string `json:"emailId"`
	UserID  string `json:"userId"` // ignored, the token subject wins
}

func (h *EmailHandler) Process(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req processEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.EmailID == "" {
		return apperr.MissingField("emailId")
	}
	emailID, err := uuid.Parse(req.EmailID)
	if err != nil {
		return apperr.InvalidInput("emailId", "must be a UUID")
	}

	outcome, err := h.router.Process(c.UserContext(), userID, emailID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"classification":   outcome.Classification,
		"team":             outcome.Team,
		"taskCreated":      outcome.TaskCreated,
		"meetingCreated":   outcome.MeetingCreated,
		"autoReplyCreated": outcome.AutoReplyCreated,
	})
}

type fetchResponse struct {
	Success bool `json:"success"`
	*ingest.Summary
}

func (h *EmailHandler) Fetch(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	provider := domain.Provider(c.Params("provider"))
	if provider != domain.ProviderGmail && provider != domain.ProviderOutlook {
		return fiber.ErrNotFound
	}

	sum, err := h.ingest.Ingest(c.UserContext(), userID, provider)
	if err != nil {
		return err
	}
	return c.JSON(fetchResponse{Success: true, Summary: sum})
}
