// Package memory implements every repository port on mutex-guarded maps.
// It backs the service tests and the development mode without DATABASE_URL,
// and keeps the same uniqueness rules as the Postgres schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"officeflow/core/domain"

	"github.com/google/uuid"
)

// Store holds all tables.
type Store struct {
	mu              sync.RWMutex
	emails          map[uuid.UUID]domain.Email
	emailKeys       map[emailKey]uuid.UUID
	requestTypes    map[uuid.UUID]domain.RequestType
	classifications map[uuid.UUID]domain.Classification
	assignments     map[uuid.UUID]domain.TeamAssignment
	tasks           map[uuid.UUID]domain.Task
	meetings        map[uuid.UUID]domain.Meeting
	replies         map[uuid.UUID]domain.AutoReply
	escalations     map[uuid.UUID]domain.Escalation
	snapshots       map[string]domain.AnalyticsSnapshot
	connections     map[connKey]domain.ProviderConnection
	summaries       map[summaryKey]domain.DailySummary
}

type emailKey struct {
	userID     uuid.UUID
	externalID string
}

type connKey struct {
	userID   uuid.UUID
	provider domain.Provider
}

type summaryKey struct {
	userID uuid.UUID
	date   string
}

func NewStore() *Store {
	return &Store{
		emails:          make(map[uuid.UUID]domain.Email),
		emailKeys:       make(map[emailKey]uuid.UUID),
		requestTypes:    make(map[uuid.UUID]domain.RequestType),
		classifications: make(map[uuid.UUID]domain.Classification),
		assignments:     make(map[uuid.UUID]domain.TeamAssignment),
		tasks:           make(map[uuid.UUID]domain.Task),
		meetings:        make(map[uuid.UUID]domain.Meeting),
		replies:         make(map[uuid.UUID]domain.AutoReply),
		escalations:     make(map[uuid.UUID]domain.Escalation),
		snapshots:       make(map[string]domain.AnalyticsSnapshot),
		connections:     make(map[connKey]domain.ProviderConnection),
		summaries:       make(map[summaryKey]domain.DailySummary),
	}
}

func (s *Store) Emails() *EmailRepository                   { return &EmailRepository{s} }
func (s *Store) RequestTypes() *RequestTypeRepository       { return &RequestTypeRepository{s} }
func (s *Store) Classifications() *ClassificationRepository { return &ClassificationRepository{s} }
func (s *Store) Assignments() *AssignmentRepository         { return &AssignmentRepository{s} }
func (s *Store) Tasks() *TaskRepository                     { return &TaskRepository{s} }
func (s *Store) Meetings() *MeetingRepository               { return &MeetingRepository{s} }
func (s *Store) AutoReplies() *AutoReplyRepository          { return &AutoReplyRepository{s} }
func (s *Store) Escalations() *EscalationRepository         { return &EscalationRepository{s} }
func (s *Store) Analytics() *AnalyticsRepository            { return &AnalyticsRepository{s} }
func (s *Store) Connections() *ConnectionRepository         { return &ConnectionRepository{s} }
func (s *Store) Summaries() *SummaryRepository              { return &SummaryRepository{s} }

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// =============================================================================
// Emails
// =============================================================================

type EmailRepository struct{ s *Store }

func (r *EmailRepository) Create(_ context.Context, e *domain.Email) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := emailKey{e.UserID, e.ExternalID}
	if id, ok := r.s.emailKeys[key]; ok {
		e.ID = id
		return false, nil
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.s.emails[e.ID] = *e
	r.s.emailKeys[key] = e.ID
	return true, nil
}

func (r *EmailRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Email, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.emails[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *EmailRepository) MarkProcessed(_ context.Context, id uuid.UUID, summary string, hasTask bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.emails[id]
	if !ok {
		return ErrNotFound
	}
	e.Summary = &summary
	e.IsProcessed = true
	e.HasTask = hasTask
	r.s.emails[id] = e
	return nil
}

func (r *EmailRepository) CountCreatedBetween(_ context.Context, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, e := range r.s.emails {
		if inWindow(e.CreatedAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (r *EmailRepository) CountForUserBetween(_ context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, e := range r.s.emails {
		if e.UserID == userID && inWindow(e.CreatedAt, from, to) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored emails.
func (r *EmailRepository) Len() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.emails)
}

// =============================================================================
// Request types
// =============================================================================

type RequestTypeRepository struct{ s *Store }

func (r *RequestTypeRepository) ListActive(_ context.Context) ([]domain.RequestType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.RequestType, 0, len(r.s.requestTypes))
	for _, rt := range r.s.requestTypes {
		if rt.IsActive {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RequestTypeRepository) Upsert(_ context.Context, rt *domain.RequestType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.requestTypes {
		if existing.Name == rt.Name {
			rt.ID = id
			r.s.requestTypes[id] = *rt
			return nil
		}
	}
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	r.s.requestTypes[rt.ID] = *rt
	return nil
}

// =============================================================================
// Classifications
// =============================================================================

type ClassificationRepository struct{ s *Store }

func (r *ClassificationRepository) Create(_ context.Context, c *domain.Classification) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.classifications {
		if existing.EmailID == c.EmailID {
			return false, nil
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.classifications[c.ID] = *c
	return true, nil
}

func (r *ClassificationRepository) GetByEmailID(_ context.Context, emailID uuid.UUID) (*domain.Classification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.classifications {
		if c.EmailID == emailID {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *ClassificationRepository) MarkEscalated(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.classifications[id]
	if !ok {
		return ErrNotFound
	}
	c.Escalated = true
	c.EscalationTime = &at
	r.s.classifications[id] = c
	return nil
}

func (r *ClassificationRepository) MarkAutoReplySent(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.classifications[id]
	if !ok {
		return ErrNotFound
	}
	c.AutoReplySent = true
	r.s.classifications[id] = c
	return nil
}

func (r *ClassificationRepository) CountClassifiedBetween(_ context.Context, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, c := range r.s.classifications {
		if inWindow(c.ClassifiedAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (r *ClassificationRepository) CountByRequestTypeBetween(_ context.Context, from, to time.Time) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]int)
	for _, c := range r.s.classifications {
		if !inWindow(c.ClassifiedAt, from, to) {
			continue
		}
		name := "Unknown"
		if c.RequestTypeID != nil {
			if rt, ok := r.s.requestTypes[*c.RequestTypeID]; ok {
				name = rt.Name
			}
		}
		out[name]++
	}
	return out, nil
}

// All returns every classification.
func (r *ClassificationRepository) All() []domain.Classification {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Classification, 0, len(r.s.classifications))
	for _, c := range r.s.classifications {
		out = append(out, c)
	}
	return out
}

// =============================================================================
// Team assignments
// =============================================================================

type AssignmentRepository struct{ s *Store }

func (r *AssignmentRepository) Create(_ context.Context, a *domain.TeamAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.assignments {
		if existing.EmailID == a.EmailID {
			return ErrDuplicate
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.s.assignments[a.ID] = *a
	return nil
}

func (r *AssignmentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.TeamAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AssignmentRepository) Update(_ context.Context, a *domain.TeamAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.assignments[a.ID]; !ok {
		return ErrNotFound
	}
	r.s.assignments[a.ID] = *a
	return nil
}

func (r *AssignmentRepository) ListUnresolved(_ context.Context) ([]domain.OverdueAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.OverdueAssignment
	for _, a := range r.s.assignments {
		if a.Resolved {
			continue
		}
		item := domain.OverdueAssignment{Assignment: a}
		if c, ok := r.s.classifications[a.ClassificationID]; ok {
			item.ClassificationEscalated = c.Escalated
			if c.RequestTypeID != nil {
				if rt, ok := r.s.requestTypes[*c.RequestTypeID]; ok {
					rt := rt
					item.RequestType = &rt
				}
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Assignment.AssignedAt.Before(out[j].Assignment.AssignedAt)
	})
	return out, nil
}

func (r *AssignmentRepository) ResponseMinutesResolvedBetween(_ context.Context, from, to time.Time) ([]float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []float64
	for _, a := range r.s.assignments {
		if a.Resolved && a.ResolvedAt != nil && a.ResponseTimeMinutes != nil && inWindow(*a.ResolvedAt, from, to) {
			out = append(out, *a.ResponseTimeMinutes)
		}
	}
	sort.Float64s(out)
	return out, nil
}

func (r *AssignmentRepository) TeamPerformanceBetween(_ context.Context, from, to time.Time) (map[string]domain.TeamStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]domain.TeamStats)
	for _, a := range r.s.assignments {
		if !inWindow(a.AssignedAt, from, to) {
			continue
		}
		st := out[a.TeamName]
		st.Total++
		if a.Resolved {
			st.Resolved++
		}
		out[a.TeamName] = st
	}
	return out, nil
}

// All returns every assignment.
func (r *AssignmentRepository) All() []domain.TeamAssignment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.TeamAssignment, 0, len(r.s.assignments))
	for _, a := range r.s.assignments {
		out = append(out, a)
	}
	return out
}

// =============================================================================
// Tasks
// =============================================================================

type TaskRepository struct{ s *Store }

func (r *TaskRepository) Create(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.s.tasks[t.ID] = *t
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TaskRepository) Update(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	r.s.tasks[t.ID] = *t
	return nil
}

func (r *TaskRepository) CountByStatusForUser(_ context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[domain.TaskStatus]int)
	for _, t := range r.s.tasks {
		if t.UserID == userID {
			out[t.Status]++
		}
	}
	return out, nil
}

// All returns every task.
func (r *TaskRepository) All() []domain.Task {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Task, 0, len(r.s.tasks))
	for _, t := range r.s.tasks {
		out = append(out, t)
	}
	return out
}

// =============================================================================
// Meetings
// =============================================================================

type MeetingRepository struct{ s *Store }

func (r *MeetingRepository) Create(_ context.Context, m *domain.Meeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.s.meetings[m.ID] = *m
	return nil
}

func (r *MeetingRepository) CountStartingForUserBetween(_ context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, m := range r.s.meetings {
		if m.UserID == userID && inWindow(m.StartTime, from, to) {
			n++
		}
	}
	return n, nil
}

// All returns every meeting.
func (r *MeetingRepository) All() []domain.Meeting {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Meeting, 0, len(r.s.meetings))
	for _, m := range r.s.meetings {
		out = append(out, m)
	}
	return out
}

// =============================================================================
// Auto replies
// =============================================================================

type AutoReplyRepository struct{ s *Store }

func (r *AutoReplyRepository) Create(_ context.Context, a *domain.AutoReply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.s.replies[a.ID] = *a
	return nil
}

func (r *AutoReplyRepository) CountSentBetween(_ context.Context, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.replies {
		if inWindow(a.SentAt, from, to) {
			n++
		}
	}
	return n, nil
}

// All returns every drafted reply.
func (r *AutoReplyRepository) All() []domain.AutoReply {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.AutoReply, 0, len(r.s.replies))
	for _, a := range r.s.replies {
		out = append(out, a)
	}
	return out
}

// =============================================================================
// Escalations
// =============================================================================

type EscalationRepository struct{ s *Store }

func (r *EscalationRepository) CreateIfAbsent(_ context.Context, e *domain.Escalation) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.escalations {
		if existing.TeamAssignmentID == e.TeamAssignmentID {
			return false, nil
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.s.escalations[e.ID] = *e
	return true, nil
}

func (r *EscalationRepository) GetByAssignmentID(_ context.Context, assignmentID uuid.UUID) (*domain.Escalation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.escalations {
		if e.TeamAssignmentID == assignmentID {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *EscalationRepository) Resolve(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.escalations[id]
	if !ok {
		return ErrNotFound
	}
	e.Resolved = true
	e.ResolvedAt = &at
	r.s.escalations[id] = e
	return nil
}

func (r *EscalationRepository) CountBetween(_ context.Context, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, e := range r.s.escalations {
		if inWindow(e.EscalatedAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (r *EscalationRepository) CountSLABreachesBetween(_ context.Context, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, e := range r.s.escalations {
		if e.IsSLABreach && inWindow(e.EscalatedAt, from, to) {
			n++
		}
	}
	return n, nil
}

// All returns every escalation.
func (r *EscalationRepository) All() []domain.Escalation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Escalation, 0, len(r.s.escalations))
	for _, e := range r.s.escalations {
		out = append(out, e)
	}
	return out
}

// =============================================================================
// Analytics
// =============================================================================

type AnalyticsRepository struct{ s *Store }

func (r *AnalyticsRepository) Upsert(_ context.Context, snap *domain.AnalyticsSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.snapshots[snap.MetricDate.UTC().Format(domain.DateFormat)] = *snap
	return nil
}

func (r *AnalyticsRepository) GetByDate(_ context.Context, day time.Time) (*domain.AnalyticsSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	snap, ok := r.s.snapshots[day.UTC().Format(domain.DateFormat)]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Len returns the number of stored snapshots.
func (r *AnalyticsRepository) Len() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.snapshots)
}

// =============================================================================
// Provider connections
// =============================================================================

type ConnectionRepository struct{ s *Store }

func (r *ConnectionRepository) Get(_ context.Context, userID uuid.UUID, provider domain.Provider) (*domain.ProviderConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.connections[connKey{userID, provider}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ConnectionRepository) UpdateToken(_ context.Context, c *domain.ProviderConnection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.connections[connKey{c.UserID, c.Provider}] = *c
	return nil
}

// =============================================================================
// Daily summaries
// =============================================================================

type SummaryRepository struct{ s *Store }

func (r *SummaryRepository) Upsert(_ context.Context, d *domain.DailySummary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := summaryKey{d.UserID, d.SummaryDate.UTC().Format(domain.DateFormat)}
	if existing, ok := r.s.summaries[key]; ok {
		d.ID = existing.ID
	} else if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.s.summaries[key] = *d
	return nil
}

// Get returns the stored summary for a user and day.
func (r *SummaryRepository) Get(userID uuid.UUID, day time.Time) (*domain.DailySummary, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.summaries[summaryKey{userID, day.UTC().Format(domain.DateFormat)}]
	return &d, ok
}
