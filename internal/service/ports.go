package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/civicdesk/grievance/internal/complaint"
)

// ComplaintStore is the persistence contract used by the services.
type ComplaintStore interface {
	Create(ctx context.Context, input complaint.CreateInput) (*complaint.Complaint, error)
	Get(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error)
	List(ctx context.Context, filter complaint.Filter) ([]complaint.Complaint, int, error)
	UpdateStatus(ctx context.Context, input complaint.UpdateStatusInput) (*complaint.Complaint, error)
	History(ctx context.Context, complaintID uuid.UUID) ([]complaint.StatusChange, error)
}

// CitizenDirectory answers whether a citizen record backs an identity.
type CitizenDirectory interface {
	CitizenExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, complaint.Complaint) {}
