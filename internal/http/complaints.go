package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/complaint"
	httpmiddleware "github.com/civicdesk/grievance/internal/http/middleware"
	"github.com/civicdesk/grievance/internal/pagination"
	"github.com/civicdesk/grievance/internal/service"
)

const maxBodyBytes = 1 << 20

type routingSummary struct {
	Department string             `json:"department"`
	Severity   complaint.Severity `json:"severity"`
	Status     complaint.Status   `json:"status"`
}

type submitResponse struct {
	Complaint *complaint.Complaint `json:"complaint"`
	Routing   routingSummary       `json:"routing"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// SubmitComplaint handles POST /complaints.
func (h *Handler) SubmitComplaint(w http.ResponseWriter, r *http.Request) {
	var input service.SubmitInput
	if !decodeBody(w, r, &input) {
		return
	}

	created, err := h.intake.Submit(r.Context(), auth.BearerToken(r.Header.Get("Authorization")), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, submitResponse{
		Complaint: created,
		Routing: routingSummary{
			Department: created.Department,
			Severity:   created.Severity,
			Status:     created.Status,
		},
	})
}

// UpdateComplaintStatus handles PUT /complaints/{id}/status.
func (h *Handler) UpdateComplaintStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := complaintID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.status.UpdateStatus(r.Context(), auth.BearerToken(r.Header.Get("Authorization")), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"complaint": updated})
}

// ListComplaints handles GET /complaints.
func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	result, err := h.complaints.List(r.Context(), service.ListQuery{
		Page:       pagination.FromQuery(values, "page_size", h.pages),
		Department: values.Get("department"),
		State:      values.Get("state"),
		District:   values.Get("district"),
		Status:     multiValue(values["status"]),
		Severity:   multiValue(values["severity"]),
		Search:     values.Get("search"),
		Sort:       values.Get("sort"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// GetComplaint handles GET /complaints/{id}.
func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := complaintID(w, r)
	if !ok {
		return
	}

	c, err := h.complaints.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"complaint": c})
}

// ComplaintHistory handles GET /complaints/{id}/history.
func (h *Handler) ComplaintHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := complaintID(w, r)
	if !ok {
		return
	}
	identity, _ := httpmiddleware.GetIdentity(r.Context())

	history, err := h.complaints.History(r.Context(), identity, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"history": history})
}

// MyComplaints handles GET /complaints/mine.
func (h *Handler) MyComplaints(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.GetIdentity(r.Context())

	result, err := h.complaints.Mine(r.Context(), identity, pagination.FromQuery(r.URL.Query(), "page_size", h.pages))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// DepartmentComplaints handles GET /departments/complaints.
func (h *Handler) DepartmentComplaints(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.GetIdentity(r.Context())
	values := r.URL.Query()

	page, err := h.complaints.DepartmentComplaints(r.Context(), identity, values.Get("department"), pagination.FromQuery(values, "limit", h.dashboard))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, page)
}

func complaintID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid complaint id", map[string]string{"field": "id"})
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body", nil)
		return false
	}
	return true
}

// multiValue accepts both repeated parameters and comma-separated lists.
func multiValue(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
