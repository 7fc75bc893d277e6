package classification

import (
	"errors"
	"fmt"
	"strings"

	"officeflow/core/domain"

	"github.com/goccy/go-json"
)

var ErrNoJSON = errors.New("no JSON object in response")

// rawResult mirrors Result with pointer fields so absent keys keep defaults.
type rawResult struct {
	RequestType     *string  `json:"requestType"`
	UrgencyLevel    *string  `json:"urgencyLevel"`
	Sentiment       *string  `json:"sentiment"`
	Summary         *string  `json:"summary"`
	SuggestedTeam   *string  `json:"suggestedTeam"`
	ContainsTask    *bool    `json:"containsTask"`
	TaskDescription *string  `json:"taskDescription"`
	IsMeetingInvite *bool    `json:"isMeetingInvite"`
	MeetingTitle    *string  `json:"meetingTitle"`
	MeetingDateTime *string  `json:"meetingDateTime"`
	SuggestedReply  *string  `json:"suggestedReply"`
	Confidence      *float64 `json:"confidence"`
}

// Parse extracts the first JSON object from text and merges it over base.
func Parse(text string, base Result) (Result, error) {
	obj, err := FirstJSONObject(text)
	if err != nil {
		return base, err
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return base, fmt.Errorf("decode classification: %w", err)
	}

	res := base
	setString(&res.RequestType, raw.RequestType)
	setString(&res.Sentiment, raw.Sentiment)
	setString(&res.Summary, raw.Summary)
	setString(&res.SuggestedTeam, raw.SuggestedTeam)
	setString(&res.TaskDescription, raw.TaskDescription)
	setString(&res.MeetingTitle, raw.MeetingTitle)
	setString(&res.MeetingDateTime, raw.MeetingDateTime)
	setString(&res.SuggestedReply, raw.SuggestedReply)
	if raw.UrgencyLevel != nil {
		res.UrgencyLevel = domain.ParseUrgency(*raw.UrgencyLevel)
	}
	if raw.ContainsTask != nil {
		res.ContainsTask = *raw.ContainsTask
	}
	if raw.IsMeetingInvite != nil {
		res.IsMeetingInvite = *raw.IsMeetingInvite
	}
	if raw.Confidence != nil {
		res.Confidence = clamp01(*raw.Confidence)
	}
	return res, nil
}

func setString(dst *string, v *string) {
	if v == nil {
		return
	}
	if s := strings.TrimSpace(*v); s != "" {
		*dst = s
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// FirstJSONObject returns the first balanced {...} span in text, skipping
// markdown code fences and braces inside JSON strings.
func FirstJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}
