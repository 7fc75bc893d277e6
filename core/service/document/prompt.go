package document

import (
	"fmt"
	"strings"
)

var instructions = map[Type]string{
	TypeUserStory: `You are a senior business analyst writing Agile user stories.
For each story give: Title; "As a <user>, I want <goal> so that <benefit>";
acceptance criteria in Given/When/Then form; priority (High/Medium/Low);
a story point estimate; notes. Answer in Markdown.`,

	TypeBRD: `You are a senior business analyst writing a Business Requirements Document.
Use these sections: Executive Summary, Business Objectives, Current State,
Proposed Solution, Scope (in and out), Stakeholders, Business Requirements,
Non-Functional Requirements, Assumptions and Constraints, Dependencies,
Success Metrics, Timeline, Risks and Mitigation. Answer in Markdown.`,

	TypeFRD: `You are a senior business analyst writing a Functional Requirements Document.
Use these sections: Document Control, Introduction, System Overview,
Functional Requirements (numbered FR-001 onwards, each with description,
MoSCoW priority, source and acceptance criteria), User Interface, Data,
Integrations, Security, Performance, Error Handling, Traceability Matrix.
Answer in Markdown.`,
}

func buildPrompt(req Request) string {
	project := req.ProjectName
	if project == "" {
		project = "Not specified"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n", project)
	fmt.Fprintf(&sb, "Context/Requirements: %s\n", strings.TrimSpace(req.Context))
	if extra := strings.TrimSpace(req.AdditionalRequirements); extra != "" {
		fmt.Fprintf(&sb, "Additional Requirements: %s\n", extra)
	}
	fmt.Fprintf(&sb, "\nWrite a complete %s from the information above.", req.Type.Title())
	return sb.String()
}
