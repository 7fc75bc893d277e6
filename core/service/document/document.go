// Package document drafts business-analysis documents (user stories, BRD,
// FRD) with one text-generation call.
package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"officeflow/core/port/out"
	"officeflow/pkg/apperr"

	"github.com/rs/zerolog"
)

type Type string

const (
	TypeUserStory Type = "user-story"
	TypeBRD       Type = "brd"
	TypeFRD       Type = "frd"
)

// Types lists the supported document types.
var Types = []Type{TypeUserStory, TypeBRD, TypeFRD}

func (t Type) Valid() bool {
	_, ok := instructions[t]
	return ok
}

// Title is the name used in the prompt.
func (t Type) Title() string {
	switch t {
	case TypeUserStory:
		return "set of user stories"
	case TypeBRD:
		return "Business Requirements Document"
	case TypeFRD:
		return "Functional Requirements Document"
	}
	return string(t)
}

// Request is the caller's input. Type and Context are required.
type Request struct {
	Type                   Type
	Context                string
	ProjectName            string
	AdditionalRequirements string
}

type Document struct {
	Type        Type      `json:"type"`
	ProjectName string    `json:"projectName,omitempty"`
	Content     string    `json:"document"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Generator has no storage; documents are returned to the caller only.
type Generator struct {
	gen out.TextGenerator
	now func() time.Time
	log zerolog.Logger
}

// NewGenerator creates a Generator. gen may be nil, in which case every
// request fails with 503.
func NewGenerator(gen out.TextGenerator, log zerolog.Logger) *Generator {
	return &Generator{gen: gen, now: time.Now, log: log.With().Str("component", "document").Logger()}
}

func (g *Generator) Generate(ctx context.Context, req Request) (*Document, error) {
	if req.Type == "" {
		return nil, apperr.MissingField("type")
	}
	if !req.Type.Valid() {
		return nil, apperr.InvalidInput("type", "must be one of user-story, brd, frd")
	}
	if strings.TrimSpace(req.Context) == "" {
		return nil, apperr.MissingField("context")
	}
	if g.gen == nil {
		return nil, apperr.Unavailable("text generation")
	}

	content, err := g.gen.CompleteWithSystem(ctx, instructions[req.Type], buildPrompt(req))
	if err != nil {
		g.log.Error().Err(err).Str("type", string(req.Type)).Msg("document generation failed")
		return nil, apperr.ExternalError("llm", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.ExternalError("llm", fmt.Errorf("empty document"))
	}

	g.log.Info().
		Str("type", string(req.Type)).
		Str("project", req.ProjectName).
		Int("length", len(content)).
		Msg("document generated")

	return &Document{
		Type:        req.Type,
		ProjectName: req.ProjectName,
		Content:     content,
		GeneratedAt: g.now().UTC(),
	}, nil
}
