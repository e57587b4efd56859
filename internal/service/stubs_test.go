package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/classifier"
	"github.com/civicdesk/grievance/internal/complaint"
	"github.com/civicdesk/grievance/internal/notify"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestJWT() *auth.JWTManager {
	return auth.NewJWTManager(testSecret, time.Hour)
}

func mustToken(m *auth.JWTManager, subject uuid.UUID, role, department string) string {
	token, err := m.GenerateAccessToken(subject, role, department)
	if err != nil {
		panic(err)
	}
	return token
}

type memStore struct {
	mu         sync.Mutex
	complaints map[uuid.UUID]complaint.Complaint
	history    map[uuid.UUID][]complaint.StatusChange
	createErr  error
	updateErr  error
	listErr    error
	creates    int
	lastFilter complaint.Filter
}

func newMemStore() *memStore {
	return &memStore{
		complaints: make(map[uuid.UUID]complaint.Complaint),
		history:    make(map[uuid.UUID][]complaint.StatusChange),
	}
}

func (s *memStore) seed(c complaint.Complaint) complaint.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = complaint.StatusPending
	}
	s.complaints[c.ID] = c
	return c
}

func (s *memStore) snapshot(id uuid.UUID) complaint.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complaints[id]
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.complaints)
}

func (s *memStore) Create(_ context.Context, in complaint.CreateInput) (*complaint.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.creates++
	now := time.Now().UTC()
	c := complaint.Complaint{
		ID:         uuid.New(),
		CitizenID:  in.CitizenID,
		Text:       in.Text,
		Location:   in.Location,
		Sector:     in.Sector,
		Department: in.Department,
		Severity:   in.Severity,
		Status:     complaint.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.complaints[c.ID] = c
	return &c, nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, complaint.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) List(_ context.Context, filter complaint.Filter) ([]complaint.Complaint, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var out []complaint.Complaint
	for _, c := range s.complaints {
		if filter.CitizenID != nil && c.CitizenID != *filter.CitizenID {
			continue
		}
		if filter.Department != "" && c.Department != filter.Department {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (s *memStore) UpdateStatus(_ context.Context, in complaint.UpdateStatusInput) (*complaint.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	c, ok := s.complaints[in.ID]
	if !ok {
		return nil, complaint.ErrNotFound
	}
	s.history[in.ID] = append(s.history[in.ID], complaint.StatusChange{
		ID:          uuid.New(),
		ComplaintID: in.ID,
		OldStatus:   c.Status,
		NewStatus:   in.Status,
		ChangedBy:   in.ChangedBy,
		ChangedAt:   time.Now().UTC(),
	})
	c.Status = in.Status
	c.UpdatedAt = time.Now().UTC()
	s.complaints[in.ID] = c
	return &c, nil
}

func (s *memStore) History(_ context.Context, id uuid.UUID) ([]complaint.StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]complaint.StatusChange(nil), s.history[id]...), nil
}

type stubCitizens struct {
	known map[uuid.UUID]bool
	err   error
}

func (s stubCitizens) CitizenExists(_ context.Context, id uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.known[id], nil
}

type stubClassifier struct {
	result classifier.Result
	err    error
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ string, _ complaint.Location) (classifier.Result, error) {
	s.calls++
	if s.err != nil {
		return classifier.Result{}, s.err
	}
	return s.result, nil
}

type delivery struct {
	citizenID uuid.UUID
	event     notify.Event
}

type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	outcome    notify.Outcome
	err        error
}

func (n *recordingNotifier) Deliver(_ context.Context, citizenID uuid.UUID, event notify.Event) (notify.Outcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{citizenID: citizenID, event: event})
	if n.err != nil {
		return notify.OutcomeFailed, n.err
	}
	if n.outcome == "" {
		return notify.OutcomeDelivered, nil
	}
	return n.outcome, nil
}

type recordingMetrics struct {
	mu            sync.Mutex
	notifications []string
}

func (m *recordingMetrics) ComplaintSubmitted(string, string) {}
func (m *recordingMetrics) ClassificationFailed()             {}
func (m *recordingMetrics) StatusUpdated(string)              {}

func (m *recordingMetrics) NotificationOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, outcome)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, name string, _ complaint.Complaint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
}

var errStoreDown = errors.New("connection refused")
