package classification

import (
	"fmt"
	"strings"

	"officeflow/core/service/catalog"
)

const systemPrompt = "You are an expert email classifier for office automation. Respond only in valid JSON format."

func buildPrompt(in EmailInput, cat *catalog.Catalog, bodyLimit int) string {
	types := "General"
	if names := cat.Names(); len(names) > 0 {
		types = strings.Join(names, ", ")
	}

	var sb strings.Builder
	sb.WriteString("Analyze this email and classify it into one of the request types.\n\n")
	if summary := cat.PromptSummary(); summary != "" {
		sb.WriteString("Request types:\n")
		sb.WriteString(summary)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "From: %s\nSubject: %s\nBody: %s\n\n", in.Sender, in.Subject, TruncateBody(in.Body, bodyLimit))
	fmt.Fprintf(&sb, `Respond with this exact JSON format:
{
  "requestType": "one of: %s",
  "urgencyLevel": "one of: low, medium, high, critical",
  "sentiment": "one of: positive, neutral, negative",
  "summary": "2-3 sentence summary of the email",
  "suggestedTeam": "the team that should handle it",
  "containsTask": true/false,
  "taskDescription": "if containsTask is true, describe the task",
  "isMeetingInvite": true/false,
  "meetingTitle": "if meeting invite, the meeting title",
  "meetingDateTime": "if meeting invite, ISO datetime string or null",
  "suggestedReply": "a professional auto-reply acknowledging the email",
  "confidence": 0.0-1.0
}`, types)
	return sb.String()
}
