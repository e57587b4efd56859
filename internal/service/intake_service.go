package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/classifier"
	"github.com/civicdesk/grievance/internal/complaint"
	"github.com/civicdesk/grievance/internal/events"
	"github.com/civicdesk/grievance/internal/metrics"
)

// MaxTextLength bounds the complaint body in characters.
const MaxTextLength = 5000

// SubmitInput is what a citizen sends.
type SubmitInput struct {
	Text     string             `json:"text"`
	Location complaint.Location `json:"location"`
	Sector   string             `json:"sector,omitempty"`
}

// IntakeService routes citizen submissions through classification into the store.
type IntakeService struct {
	verifier   auth.Verifier
	citizens   CitizenDirectory
	classifier classifier.Classifier
	store      ComplaintStore
	events     events.Publisher
	metrics    metrics.Recorder
	logger     zerolog.Logger
}

// NewIntakeService wires the service. publisher and recorder may be nil.
func NewIntakeService(verifier auth.Verifier, citizens CitizenDirectory, c classifier.Classifier, store ComplaintStore, publisher events.Publisher, recorder metrics.Recorder, logger zerolog.Logger) *IntakeService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &IntakeService{
		verifier:   verifier,
		citizens:   citizens,
		classifier: c,
		store:      store,
		events:     publisher,
		metrics:    recorder,
		logger:     logger,
	}
}

// Submit creates exactly one complaint when every step succeeds and none otherwise.
func (s *IntakeService) Submit(ctx context.Context, credential string, input SubmitInput) (*complaint.Complaint, error) {
	identity, err := authorize(s.verifier, credential, auth.RoleCitizen)
	if err != nil {
		return nil, err
	}

	input, err = validateSubmission(input)
	if err != nil {
		return nil, err
	}

	exists, err := s.citizens.CitizenExists(ctx, identity.Subject)
	if err != nil {
		return nil, persistence("lookup citizen", err)
	}
	if !exists {
		return nil, ErrUnknownCitizen
	}

	routing, err := s.classifier.Classify(ctx, input.Text, input.Location)
	if err != nil {
		if errors.Is(err, classifier.ErrInvalidInput) {
			return nil, invalid("location", err.Error())
		}
		s.metrics.ClassificationFailed()
		s.logger.Warn().Err(err).Str("citizen_id", identity.Subject.String()).Msg("classification failed")
		return nil, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}

	sector := input.Sector
	if sector == "" {
		sector = complaint.InferSector(routing.Department)
	}

	created, err := s.store.Create(ctx, complaint.CreateInput{
		CitizenID:  identity.Subject,
		Text:       input.Text,
		Location:   input.Location,
		Sector:     sector,
		Department: routing.Department,
		Severity:   routing.Severity,
	})
	if err != nil {
		return nil, persistence("create complaint", err)
	}

	s.metrics.ComplaintSubmitted(created.Department, string(created.Severity))
	s.events.Publish(ctx, events.ComplaintCreated, *created)
	s.logger.Info().
		Str("complaint_id", created.ID.String()).
		Str("department", created.Department).
		Str("severity", string(created.Severity)).
		Msg("complaint routed")

	return created, nil
}

func validateSubmission(input SubmitInput) (SubmitInput, error) {
	input.Text = strings.TrimSpace(input.Text)
	if input.Text == "" {
		return input, invalid("text", "required")
	}
	if utf8.RuneCountInString(input.Text) > MaxTextLength {
		return input, invalid("text", fmt.Sprintf("must be at most %d characters", MaxTextLength))
	}

	input.Location = input.Location.Normalize()
	if !input.Location.Resolvable() {
		return input, invalid("location", "state and district are required")
	}
	if !input.Location.ValidCoordinates() {
		return input, invalid("location", "lat and lng must be set together and within range")
	}

	input.Sector = strings.TrimSpace(input.Sector)
	if input.Sector != "" && !complaint.IsValidSector(input.Sector) {
		return input, invalid("sector", "unknown sector")
	}
	return input, nil
}
