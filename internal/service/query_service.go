package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/complaint"
	"github.com/civicdesk/grievance/internal/pagination"
)

// ListQuery carries the public listing filters as received.
type ListQuery struct {
	Page       pagination.Request
	Department string
	State      string
	District   string
	Status     []string
	Severity   []string
	Search     string
	Sort       string
}

// DepartmentPage is the staff dashboard listing.
type DepartmentPage struct {
	Department      string                `json:"department"`
	Complaints      []complaint.Complaint `json:"complaints"`
	Page            int                   `json:"page"`
	TotalPages      int                   `json:"totalPages"`
	TotalComplaints int                   `json:"totalComplaints"`
}

// dashboardOrder puts the most urgent complaints first, newest within a tier.
var dashboardOrder = []complaint.SortField{
	{Field: "severity"},
	{Field: "created_at", Descending: true},
}

// QueryService serves read paths over the store.
type QueryService struct {
	store ComplaintStore
}

// NewQueryService creates the service.
func NewQueryService(store ComplaintStore) *QueryService {
	return &QueryService{store: store}
}

// List returns a filtered, sorted page.
func (s *QueryService) List(ctx context.Context, q ListQuery) (pagination.Result[complaint.Complaint], error) {
	filter := complaint.Filter{
		Department: q.Department,
		State:      q.State,
		District:   q.District,
		Search:     q.Search,
		Sort:       complaint.ParseSort(q.Sort),
		Limit:      q.Page.PageSize,
		Offset:     q.Page.Offset(),
	}

	for _, raw := range q.Status {
		st, err := complaint.ParseStatus(raw)
		if err != nil {
			return pagination.Result[complaint.Complaint]{}, invalid("status", "unknown status "+raw)
		}
		filter.Status = append(filter.Status, st)
	}
	for _, raw := range q.Severity {
		sev, err := complaint.ParseSeverity(raw)
		if err != nil {
			return pagination.Result[complaint.Complaint]{}, invalid("severity", "unknown severity "+raw)
		}
		filter.Severity = append(filter.Severity, sev)
	}

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return pagination.Result[complaint.Complaint]{}, persistence("list complaints", err)
	}
	return pagination.NewResult(items, total, q.Page), nil
}

// Get returns one complaint.
func (s *QueryService) Get(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, complaint.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence("load complaint", err)
	}
	return c, nil
}

// History returns the status audit trail, oldest first. Staff only.
func (s *QueryService) History(ctx context.Context, identity auth.Identity, id uuid.UUID) ([]complaint.StatusChange, error) {
	if !identity.HasRole(auth.RoleStaff) {
		return nil, ErrForbidden
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.store.History(ctx, id)
	if err != nil {
		return nil, persistence("load history", err)
	}
	return history, nil
}

// Mine lists the calling citizen's own complaints, newest first.
func (s *QueryService) Mine(ctx context.Context, identity auth.Identity, page pagination.Request) (pagination.Result[complaint.Complaint], error) {
	if !identity.HasRole(auth.RoleCitizen) {
		return pagination.Result[complaint.Complaint]{}, ErrForbidden
	}
	owner := identity.Subject
	items, total, err := s.store.List(ctx, complaint.Filter{
		CitizenID: &owner,
		Limit:     page.PageSize,
		Offset:    page.Offset(),
	})
	if err != nil {
		return pagination.Result[complaint.Complaint]{}, persistence("list own complaints", err)
	}
	return pagination.NewResult(items, total, page), nil
}

// DepartmentComplaints lists a department's queue by urgency.
// The credential's department claim wins; requested is used only when the claim is empty.
func (s *QueryService) DepartmentComplaints(ctx context.Context, identity auth.Identity, requested string, page pagination.Request) (DepartmentPage, error) {
	if !identity.HasRole(auth.RoleStaff) {
		return DepartmentPage{}, ErrForbidden
	}
	department := identity.Department
	if department == "" {
		department = strings.TrimSpace(requested)
	}
	if department == "" {
		return DepartmentPage{}, invalid("department", "required")
	}

	items, total, err := s.store.List(ctx, complaint.Filter{
		Department: department,
		Sort:       dashboardOrder,
		Limit:      page.PageSize,
		Offset:     page.Offset(),
	})
	if err != nil {
		return DepartmentPage{}, persistence("list department complaints", err)
	}

	result := pagination.NewResult(items, total, page)
	return DepartmentPage{
		Department:      department,
		Complaints:      result.Items,
		Page:            result.Page,
		TotalPages:      result.TotalPages,
		TotalComplaints: result.Total,
	}, nil
}
