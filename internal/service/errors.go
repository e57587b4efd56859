package service

import (
	"errors"
	"fmt"

	"github.com/civicdesk/grievance/internal/auth"
)

var (
	// ErrUnauthenticated indicates a missing or invalid credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a verified credential without the required role or scope.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the complaint does not exist.
	ErrNotFound = errors.New("complaint not found")
	// ErrUnknownCitizen indicates a credential whose citizen has no backing record.
	ErrUnknownCitizen = errors.New("unknown citizen")
	// ErrClassificationUnavailable indicates the classifier could not route the complaint.
	ErrClassificationUnavailable = errors.New("classification unavailable")
	// ErrPersistence indicates a store failure.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// authorize verifies the credential and requires role.
func authorize(verifier auth.Verifier, credential, role string) (auth.Identity, error) {
	identity, err := verifier.Verify(credential)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if !identity.HasRole(role) {
		return auth.Identity{}, fmt.Errorf("%w: role %s required", ErrForbidden, role)
	}
	return identity, nil
}
