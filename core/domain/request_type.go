package domain

import (
	"strings"

	"github.com/google/uuid"
)

// RequestType is a catalog entry: a named category with its routing team,
// SLA and canned reply.
type RequestType struct {
	ID                uuid.UUID `json:"id" yaml:"-"`
	Name              string    `json:"name" yaml:"name"`
	Category          string    `json:"category" yaml:"category"`
	Keywords          []string  `json:"keywords" yaml:"keywords"`
	RoutingTeam       string    `json:"routing_team" yaml:"routing_team"`
	SLAHours          int       `json:"sla_hours" yaml:"sla_hours"`
	AutoReplyTemplate string    `json:"auto_reply_template,omitempty" yaml:"auto_reply_template"`
	EscalateTo        *string   `json:"escalate_to,omitempty" yaml:"escalate_to"`
	IsActive          bool      `json:"is_active" yaml:"is_active"`
}

// RenderReply fills the {sender} and {subject} placeholders of the template.
func (rt *RequestType) RenderReply(sender, subject string) string {
	if rt == nil || rt.AutoReplyTemplate == "" {
		return ""
	}
	r := strings.NewReplacer("{sender}", sender, "{subject}", subject)
	return r.Replace(rt.AutoReplyTemplate)
}
