package classification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"officeflow/core/domain"
	"officeflow/core/service/catalog"

	"github.com/rs/zerolog"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) CompleteWithSystem(_ context.Context, system, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	return f.response, f.err
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]domain.RequestType{
		{Name: "Access Request", Category: "IT", Keywords: []string{"vpn", "access"}, RoutingTeam: "IT Security", SLAHours: 8},
		{Name: "General", Category: "General", RoutingTeam: "General", SLAHours: 72},
	})
}

func TestClassifyParsesResponse(t *testing.T) {
	gen := &fakeGenerator{response: "Sure! ```json\n" +
		`{"requestType":"Access Request","urgencyLevel":"HIGH","summary":"Needs VPN","containsTask":true,"taskDescription":"Grant VPN access"}` +
		"\n```"}
	c := NewClassifier(gen, Config{}, zerolog.Nop())

	res := c.Classify(context.Background(), EmailInput{Sender: "a@b.com", Subject: "Need VPN access", Body: "urgent, blocked"}, testCatalog())

	if res.Fallback {
		t.Fatal("expected parsed result, got fallback")
	}
	if res.RequestType != "Access Request" {
		t.Errorf("expected Access Request, got %q", res.RequestType)
	}
	if res.UrgencyLevel != domain.UrgencyHigh {
		t.Errorf("expected high, got %q", res.UrgencyLevel)
	}
	if res.Confidence != DefaultConfidence {
		t.Errorf("expected default confidence %v, got %v", DefaultConfidence, res.Confidence)
	}
	if res.SuggestedTeam != DefaultTeam {
		t.Errorf("absent keys must keep defaults, got team %q", res.SuggestedTeam)
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "- Access Request (IT): keywords: vpn, access") {
		t.Errorf("prompt missing catalog summary:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Subject: Need VPN access") {
		t.Errorf("prompt missing subject:\n%s", prompt)
	}
}

func TestClassifyFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"call error", &fakeGenerator{err: errors.New("timeout")}},
		{"no json", &fakeGenerator{response: "I cannot help with that."}},
		{"broken json", &fakeGenerator{response: `{"requestType": "Access Request", "urgencyLevel": }`}},
		{"wrong types", &fakeGenerator{response: `{"containsTask": "maybe"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.gen, Config{}, zerolog.Nop())
			res := c.Classify(context.Background(), EmailInput{Subject: "Printer jam"}, testCatalog())

			if !res.Fallback {
				t.Fatal("expected fallback")
			}
			if res.RequestType != domain.DefaultRequestType {
				t.Errorf("expected %q, got %q", domain.DefaultRequestType, res.RequestType)
			}
			if res.UrgencyLevel != domain.UrgencyMedium {
				t.Errorf("expected medium, got %q", res.UrgencyLevel)
			}
			if res.Summary != "Printer jam" {
				t.Errorf("expected subject as summary, got %q", res.Summary)
			}
			if res.Confidence != FallbackConfidence {
				t.Errorf("expected %v, got %v", FallbackConfidence, res.Confidence)
			}
		})
	}
}

func TestClassifyNilGenerator(t *testing.T) {
	c := NewClassifier(nil, Config{}, zerolog.Nop())
	res := c.Classify(context.Background(), EmailInput{Subject: "Hello"}, nil)
	if !res.Fallback || res.UrgencyLevel != domain.UrgencyMedium {
		t.Errorf("expected default classification, got %+v", res)
	}
}

func TestClassifyDetectsMeetingWhenCallFails(t *testing.T) {
	c := NewClassifier(&fakeGenerator{err: context.DeadlineExceeded}, Config{}, zerolog.Nop())
	res := c.Classify(context.Background(), EmailInput{
		Subject: "Sync",
		Body:    "Join at https://acme.zoom.us/j/123456789?pwd=abc",
	}, testCatalog())

	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if res.MeetingLink == nil {
		t.Fatal("expected meeting link from regex detector")
	}
	if res.MeetingLink.Provider != domain.MeetingZoom {
		t.Errorf("expected zoom, got %s", res.MeetingLink.Provider)
	}
}

func TestTruncateBodyInPrompt(t *testing.T) {
	gen := &fakeGenerator{response: "{}"}
	c := NewClassifier(gen, Config{BodyLimit: 10}, zerolog.Nop())
	c.Classify(context.Background(), EmailInput{Subject: "s", Body: strings.Repeat("é", 50)}, nil)

	if !strings.Contains(gen.prompts[0], "Body: "+strings.Repeat("é", 10)+"...\n") {
		t.Errorf("expected body truncated to 10 runes:\n%s", gen.prompts[0])
	}
}
