package http

import (
	"context"

	"officeflow/core/service/document"

	"github.com/gofiber/fiber/v2"
)

type DocumentGenerator interface {
	Generate(ctx context.Context, req document.Request) (*document.Document, error)
}

// DocumentHandler drafts BA documents. Nothing is stored.
type DocumentHandler struct {
	docs DocumentGenerator
}

func NewDocumentHandler(docs DocumentGenerator) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

func (h *DocumentHandler) Register(app fiber.Router) {
	app.Post("/documents/generate", h.Generate)
}

type generateDocumentRequest struct {
	Type                   string `json:"type"`
	Context                string `json:"context"`
	ProjectName            string `json:"projectName"`
	AdditionalRequirements string `json:"additionalRequirements"`
}

func (h *DocumentHandler) Generate(c *fiber.Ctx) error {
	if _, err := GetUserID(c); err != nil {
		return err
	}

	var req generateDocumentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	doc, err := h.docs.Generate(c.UserContext(), document.Request{
		Type:                   document.Type(req.Type),
		Context:                req.Context,
		ProjectName:            req.ProjectName,
		AdditionalRequirements: req.AdditionalRequirements,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"type":        doc.Type,
		"document":    doc.Content,
		"projectName": doc.ProjectName,
		"generatedAt": doc.GeneratedAt,
	})
}
