package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/complaint"
	"github.com/civicdesk/grievance/internal/config"
	httpmiddleware "github.com/civicdesk/grievance/internal/http/middleware"
	"github.com/civicdesk/grievance/internal/pagination"
	"github.com/civicdesk/grievance/internal/service"
)

// Intake submits citizen complaints.
type Intake interface {
	Submit(ctx context.Context, credential string, input service.SubmitInput) (*complaint.Complaint, error)
}

// StatusUpdater applies staff status changes.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, credential string, complaintID uuid.UUID, newStatus string) (*complaint.Complaint, error)
}

// ComplaintReader serves the read paths.
type ComplaintReader interface {
	List(ctx context.Context, q service.ListQuery) (pagination.Result[complaint.Complaint], error)
	Get(ctx context.Context, id uuid.UUID) (*complaint.Complaint, error)
	History(ctx context.Context, identity auth.Identity, id uuid.UUID) ([]complaint.StatusChange, error)
	Mine(ctx context.Context, identity auth.Identity, page pagination.Request) (pagination.Result[complaint.Complaint], error)
	DepartmentComplaints(ctx context.Context, identity auth.Identity, department string, page pagination.Request) (service.DepartmentPage, error)
}

// Check is one readiness check.
type Check func(ctx context.Context) error

// Deps collects everything the router serves.
type Deps struct {
	Config        *config.Config
	Verifier      auth.Verifier
	Intake        Intake
	Status        StatusUpdater
	Complaints    ComplaintReader
	Notifications http.Handler
	Metrics       http.Handler
	Checks        map[string]Check
}

// Handler holds the HTTP handlers.
type Handler struct {
	intake        Intake
	status        StatusUpdater
	complaints    ComplaintReader
	checks        map[string]Check
	pages         pagination.Config
	dashboard     pagination.Config
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	submitLimiter *httpmiddleware.RateLimiter
}

const dashboardPageSize = 5

// NewRouter returns the configured router.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config

	h := &Handler{
		intake:     deps.Intake,
		status:     deps.Status,
		complaints: deps.Complaints,
		checks:     deps.Checks,
		pages: pagination.Config{
			DefaultPageSize: cfg.Pagination.DefaultPageSize,
			MaxPageSize:     cfg.Pagination.MaxPageSize,
		},
		dashboard: pagination.Config{
			DefaultPageSize: dashboardPageSize,
			MaxPageSize:     cfg.Pagination.MaxPageSize,
		},
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		submitLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitSubmit.RequestsPerSecond, cfg.RateLimitSubmit.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	if deps.Notifications != nil {
		r.Method(http.MethodGet, "/ws/notifications", deps.Notifications)
	}

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/complaints", h.ListComplaints)
		public.Get("/complaints/{id}", h.GetComplaint)

		// credential is verified by the services so the auth outcome is part of the operation
		public.With(httpmiddleware.CitizenRateLimit(h.submitLimiter, deps.Verifier)).Post("/complaints", h.SubmitComplaint)
		public.Put("/complaints/{id}/status", h.UpdateComplaintStatus)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(deps.Verifier))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.With(httpmiddleware.RequireRole(auth.RoleCitizen)).Get("/complaints/mine", h.MyComplaints)
		private.With(httpmiddleware.RequireRole(auth.RoleStaff)).Get("/complaints/{id}/history", h.ComplaintHistory)
		private.With(httpmiddleware.RequireRole(auth.RoleStaff)).Get("/departments/complaints", h.DepartmentComplaints)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every dependency check.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "dependencies unavailable", failures)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
