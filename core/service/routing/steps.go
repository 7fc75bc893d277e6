package routing

import (
	"fmt"
	"strings"
	"time"

	"officeflow/core/domain"
	"officeflow/core/service/classification"
	"officeflow/pkg/metrics"

	"github.com/google/uuid"
)

func recordStepFailure(step string) {
	metrics.RecordRouteStepFailure(step)
}

// selectTeam picks the catalog's team, then the suggested team, then General.
func selectTeam(matched *domain.RequestType, res classification.Result) string {
	if matched != nil && matched.RoutingTeam != "" {
		return matched.RoutingTeam
	}
	if team := strings.TrimSpace(res.SuggestedTeam); team != "" {
		return team
	}
	return classification.DefaultTeam
}

func wantsTask(res classification.Result) bool {
	return res.ContainsTask && strings.TrimSpace(res.TaskDescription) != ""
}

func buildTask(email *domain.Email, res classification.Result, matched *domain.RequestType, now time.Time) *domain.Task {
	if !wantsTask(res) {
		return nil
	}
	desc := strings.TrimSpace(res.TaskDescription)
	task := &domain.Task{
		ID:          uuid.New(),
		UserID:      email.UserID,
		EmailID:     email.ID,
		Title:       domain.TruncateRunes(desc, domain.TaskTitleLimit),
		Description: desc,
		Priority:    res.UrgencyLevel.TaskPriority(),
		Status:      domain.TaskStatusPending,
		CreatedAt:   now,
	}
	if matched != nil && matched.SLAHours > 0 {
		due := now.Add(time.Duration(matched.SLAHours) * time.Hour)
		task.DueDate = &due
	}
	return task
}

var meetingLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseMeetingTime reads the classifier's datetime; ok is false when absent
// or unparseable.
func parseMeetingTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return time.Time{}, false
	}
	for _, layout := range meetingLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func buildMeeting(email *domain.Email, res classification.Result, now time.Time, minutes int) *domain.Meeting {
	if !res.IsMeetingInvite && res.MeetingLink == nil {
		return nil
	}

	title := strings.TrimSpace(res.MeetingTitle)
	if title == "" {
		title = email.Subject
	}
	start, ok := parseMeetingTime(res.MeetingDateTime)
	if !ok {
		start = now
	}

	m := &domain.Meeting{
		ID:          uuid.New(),
		UserID:      email.UserID,
		EmailID:     email.ID,
		Title:       title,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(minutes) * time.Minute),
		Provider:    domain.MeetingInvite,
		ExternalRef: email.ExternalID,
		CreatedAt:   now,
	}
	if res.MeetingLink != nil {
		url := res.MeetingLink.URL
		m.JoinURL = &url
		m.Provider = res.MeetingLink.Provider
	}
	m.Attendees = domain.MeetingAttendees{Source: email.Sender, Type: m.Provider}
	return m
}

// DefaultReply is the acknowledgement used when no template or suggestion exists.
func DefaultReply(subject string) string {
	return fmt.Sprintf("Thank you for your email regarding \"%s\". We have received your message and will respond shortly.", subject)
}

func buildAutoReply(email *domain.Email, cls *domain.Classification, res classification.Result, matched *domain.RequestType, now time.Time) *domain.AutoReply {
	text := matched.RenderReply(email.Sender, email.Subject)
	if text == "" {
		text = strings.TrimSpace(res.SuggestedReply)
	}
	if text == "" {
		text = DefaultReply(email.Subject)
	}
	return &domain.AutoReply{
		ID:               uuid.New(),
		EmailID:          email.ID,
		ClassificationID: cls.ID,
		Recipient:        email.Sender,
		ReplyText:        text,
		SentAt:           now,
	}
}
