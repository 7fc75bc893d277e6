package persistence

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	_ out.EmailRepository          = (*EmailRepository)(nil)
	_ out.RequestTypeRepository    = (*RequestTypeRepository)(nil)
	_ out.ClassificationRepository = (*ClassificationRepository)(nil)
	_ out.AssignmentRepository     = (*AssignmentRepository)(nil)
	_ out.TaskRepository           = (*TaskRepository)(nil)
	_ out.MeetingRepository        = (*MeetingRepository)(nil)
	_ out.AutoReplyRepository      = (*AutoReplyRepository)(nil)
	_ out.EscalationRepository     = (*EscalationRepository)(nil)
	_ out.AnalyticsRepository      = (*AnalyticsRepository)(nil)
	_ out.ConnectionRepository     = (*ConnectionRepository)(nil)
	_ out.SummaryRepository        = (*SummaryRepository)(nil)
)

func TestSchemaUniqueKeys(t *testing.T) {
	// 원자적 insert가 의존하는 제약 조건
	tests := []struct {
		table string
		want  string
	}{
		{"emails", "UNIQUE (user_id, external_id)"},
		{"email_classifications", "email_id          UUID NOT NULL UNIQUE"},
		{"team_assignments", "email_id              UUID NOT NULL UNIQUE"},
		{"escalations", "team_assignment_id UUID NOT NULL UNIQUE"},
		{"analytics", "metric_date               DATE PRIMARY KEY"},
		{"daily_summaries", "UNIQUE (user_id, summary_date)"},
		{"provider_connections", "UNIQUE (user_id, provider)"},
		{"request_types", "name                TEXT NOT NULL UNIQUE"},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS "+tt.table+" (")
			if start < 0 {
				t.Fatalf("table %s missing from schema", tt.table)
			}
			body := schema[start:]
			body = body[:strings.Index(body, ");")]
			if !strings.Contains(body, tt.want) {
				t.Errorf("table %s: expected %q", tt.table, tt.want)
			}
		})
	}
}

func TestRequestTypeRowToDomain(t *testing.T) {
	id := uuid.New()
	row := requestTypeRow{
		ID:          id,
		Name:        "Access Request",
		Keywords:    pq.StringArray{"access", "vpn"},
		RoutingTeam: "IT Security",
		SLAHours:    8,
		EscalateTo:  sql.NullString{String: "IT Security Lead", Valid: true},
		IsActive:    true,
	}
	lead := "IT Security Lead"
	want := domain.RequestType{
		ID:          id,
		Name:        "Access Request",
		Keywords:    []string{"access", "vpn"},
		RoutingTeam: "IT Security",
		SLAHours:    8,
		EscalateTo:  &lead,
		IsActive:    true,
	}
	if diff := cmp.Diff(want, row.toDomain()); diff != "" {
		t.Errorf("toDomain mismatch (-want +got):\n%s", diff)
	}

	empty := requestTypeRow{Name: "General", EscalateTo: sql.NullString{Valid: true}}
	got := empty.toDomain()
	if got.EscalateTo != nil {
		t.Errorf("expected empty escalate_to to be nil, got %q", *got.EscalateTo)
	}
	if got.Keywords == nil {
		t.Error("expected non-nil keywords")
	}
}

func TestOverdueRowToDomain(t *testing.T) {
	assigned := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	base := assignmentRow{ID: uuid.New(), TeamName: "IT Security", AssignedAt: assigned}

	unmatched := overdueRow{assignmentRow: base}
	if got := unmatched.toDomain(); got.RequestType != nil {
		t.Errorf("expected no request type, got %+v", got.RequestType)
	}

	matched := overdueRow{
		assignmentRow: base,
		RTID:          uuid.NullUUID{UUID: uuid.New(), Valid: true},
		RTName:        sql.NullString{String: "Access Request", Valid: true},
		RTSLAHours:    sql.NullInt64{Int64: 8, Valid: true},
		Escalated:     true,
	}
	got := matched.toDomain()
	if !got.ClassificationEscalated {
		t.Error("expected classification escalated flag to carry over")
	}
	if got.RequestType == nil || got.RequestType.SLAHours != 8 || got.RequestType.EscalateTo != nil {
		t.Errorf("unexpected request type %+v", got.RequestType)
	}
	if got.Assignment.AssignedAt != assigned {
		t.Errorf("expected assigned_at %v, got %v", assigned, got.Assignment.AssignedAt)
	}
}

func TestAnalyticsRowToDomain(t *testing.T) {
	row := analyticsRow{
		MetricDate:           time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		TotalEmails:          4,
		RequestTypeBreakdown: []byte(`{"Access Request":3,"Unknown":1}`),
		TeamPerformance:      []byte(`{"IT Security":{"total":3,"resolved":2}}`),
	}
	got, err := row.toDomain()
	if err != nil {
		t.Fatal(err)
	}
	if got.RequestTypeBreakdown["Unknown"] != 1 {
		t.Errorf("expected Unknown=1, got %v", got.RequestTypeBreakdown)
	}
	if got.TeamPerformance["IT Security"] != (domain.TeamStats{Total: 3, Resolved: 2}) {
		t.Errorf("unexpected team performance %v", got.TeamPerformance)
	}

	bad := analyticsRow{RequestTypeBreakdown: []byte(`{`)}
	if _, err := bad.toDomain(); err == nil {
		t.Error("expected decode error")
	}
}

func TestPrefixed(t *testing.T) {
	got := prefixed("a", "id, team_name,\n\t\t resolved")
	if want := "a.id, a.team_name, a.resolved"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
