package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/complaint"
	"github.com/civicdesk/grievance/internal/events"
	"github.com/civicdesk/grievance/internal/metrics"
	"github.com/civicdesk/grievance/internal/notify"
)

const notifyTimeout = 5 * time.Second

// StatusService applies staff status changes and notifies the owner.
type StatusService struct {
	verifier        auth.Verifier
	store           ComplaintStore
	notifier        notify.Notifier
	events          events.Publisher
	metrics         metrics.Recorder
	logger          zerolog.Logger
	departmentScope bool
}

// NewStatusService wires the service. publisher and recorder may be nil.
func NewStatusService(verifier auth.Verifier, store ComplaintStore, notifier notify.Notifier, publisher events.Publisher, recorder metrics.Recorder, logger zerolog.Logger) *StatusService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &StatusService{
		verifier: verifier,
		store:    store,
		notifier: notifier,
		events:   publisher,
		metrics:  recorder,
		logger:   logger,
	}
}

// WithDepartmentScope restricts staff to complaints of their own department.
func (s *StatusService) WithDepartmentScope(enabled bool) *StatusService {
	s.departmentScope = enabled
	return s
}

// UpdateStatus sets any allowed status. Concurrent updates are last-write-wins.
func (s *StatusService) UpdateStatus(ctx context.Context, credential string, complaintID uuid.UUID, newStatus string) (*complaint.Complaint, error) {
	identity, err := authorize(s.verifier, credential, auth.RoleStaff)
	if err != nil {
		return nil, err
	}

	status, err := complaint.ParseStatus(newStatus)
	if err != nil {
		return nil, invalid("status", "must be one of Pending, In-Progress, Resolved")
	}

	current, err := s.store.Get(ctx, complaintID)
	if err != nil {
		if errors.Is(err, complaint.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence("load complaint", err)
	}

	if err := s.checkScope(identity, current); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateStatus(ctx, complaint.UpdateStatusInput{
		ID:        complaintID,
		Status:    status,
		ChangedBy: identity.Subject,
	})
	if err != nil {
		if errors.Is(err, complaint.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence("update status", err)
	}

	s.metrics.StatusUpdated(string(updated.Status))
	s.logger.Info().
		Str("complaint_id", updated.ID.String()).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Str("staff_id", identity.Subject.String()).
		Msg("complaint status updated")

	s.notifyOwner(ctx, updated)
	s.events.Publish(ctx, events.ComplaintStatusUpdated, *updated)

	return updated, nil
}

func (s *StatusService) checkScope(identity auth.Identity, c *complaint.Complaint) error {
	if !s.departmentScope {
		return nil
	}
	if identity.Department == "" || identity.Department != c.Department {
		return ErrForbidden
	}
	return nil
}

// notifyOwner is best-effort; failures are logged and never reach the caller.
func (s *StatusService) notifyOwner(ctx context.Context, c *complaint.Complaint) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	outcome, err := s.notifier.Deliver(ctx, c.CitizenID, notify.StatusUpdate(c.ID, c.Status))
	if err != nil && outcome == "" {
		outcome = notify.OutcomeFailed
	}
	s.metrics.NotificationOutcome(string(outcome))
	if err != nil {
		s.logger.Warn().Err(err).
			Str("complaint_id", c.ID.String()).
			Str("citizen_id", c.CitizenID.String()).
			Msg("status notification not delivered")
	}
}
