package classification

import (
	"regexp"

	"officeflow/core/domain"
)

// MeetingLink is a video-conferencing join URL found in an email.
type MeetingLink struct {
	URL      string                 `json:"url"`
	Provider domain.MeetingProvider `json:"provider"`
}

var meetingPatterns = []struct {
	re       *regexp.Regexp
	provider domain.MeetingProvider
}{
	{regexp.MustCompile(`(?i)https://[\w.-]*zoom\.us/j/[\w?=&-]+`), domain.MeetingZoom},
	{regexp.MustCompile(`(?i)https://teams\.microsoft\.com/l/meetup-join/[\w%.-]+`), domain.MeetingTeams},
	{regexp.MustCompile(`(?i)https://meet\.google\.com/[\w-]+`), domain.MeetingMeet},
	{regexp.MustCompile(`(?i)https://[\w.-]*webex\.com/[\w/.?=&-]+`), domain.MeetingWebex},
}

// DetectMeetingLink scans text for a known join URL. Providers are tried in
// a fixed order and the first match wins.
func DetectMeetingLink(text string) (MeetingLink, bool) {
	for _, p := range meetingPatterns {
		if url := p.re.FindString(text); url != "" {
			return MeetingLink{URL: url, Provider: p.provider}, true
		}
	}
	return MeetingLink{}, false
}
