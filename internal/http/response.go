package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/service"
)

// classificationRetryAfter is the hint sent when the classifier is down.
const classificationRetryAfter = 5

// SuccessEnvelope wraps successful payloads.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope wraps failures.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody is the normalized error shape.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// serviceFailure is the HTTP rendering of one service sentinel.
type serviceFailure struct {
	target  error
	status  int
	code    string
	message string
}

// serviceFailures is checked in order; the first match wins.
var serviceFailures = []serviceFailure{
	{service.ErrValidation, http.StatusBadRequest, "VALIDATION", "invalid input"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "AUTH", "invalid credential"},
	{service.ErrUnknownCitizen, http.StatusUnauthorized, "UNKNOWN_CITIZEN", "citizen record not found"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "not allowed"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "complaint not found"},
	{service.ErrClassificationUnavailable, http.StatusServiceUnavailable, "CLASSIFICATION_UNAVAILABLE", "classification service unavailable, please retry"},
}

// writeServiceError maps a service error onto the envelope. Unknown errors are logged and reported as INTERNAL.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", verr.Message, map[string]string{"field": verr.Field})
		return
	}

	for _, f := range serviceFailures {
		if !errors.Is(err, f.target) {
			continue
		}
		message := f.message
		switch f.target {
		case service.ErrUnauthenticated:
			if errors.Is(err, auth.ErrMissingToken) {
				message = "missing credential"
			}
		case service.ErrClassificationUnavailable:
			w.Header().Set("Retry-After", strconv.Itoa(classificationRetryAfter))
		}
		WriteError(w, f.status, f.code, message, nil)
		return
	}

	log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
