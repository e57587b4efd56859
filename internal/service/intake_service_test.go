package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicdesk/grievance/internal/auth"
	"github.com/civicdesk/grievance/internal/classifier"
	"github.com/civicdesk/grievance/internal/complaint"
	"github.com/civicdesk/grievance/internal/events"
)

type intakeFixture struct {
	svc        *IntakeService
	jwt        *auth.JWTManager
	store      *memStore
	classifier *stubClassifier
	publisher  *recordingPublisher
	citizen    uuid.UUID
	token      string
}

func newIntakeFixture() *intakeFixture {
	jwt := newTestJWT()
	citizen := uuid.New()
	f := &intakeFixture{
		jwt:   jwt,
		store: newMemStore(),
		classifier: &stubClassifier{result: classifier.Result{
			Department: "Public Works",
			Severity:   complaint.SeverityB,
		}},
		publisher: &recordingPublisher{},
		citizen:   citizen,
		token:     mustToken(jwt, citizen, auth.RoleCitizen, ""),
	}
	f.svc = NewIntakeService(jwt, stubCitizens{known: map[uuid.UUID]bool{citizen: true}}, f.classifier, f.store, f.publisher, nil, zerolog.Nop())
	return f
}

func validSubmission() SubmitInput {
	return SubmitInput{
		Text:     "pothole on Main St",
		Location: complaint.Location{State: "X", District: "Y"},
	}
}

func TestSubmitRoutesComplaint(t *testing.T) {
	f := newIntakeFixture()

	got, err := f.svc.Submit(context.Background(), f.token, validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Status != complaint.StatusPending || got.Department != "Public Works" || got.Severity != complaint.SeverityB {
		t.Fatalf("unexpected routing %+v", got)
	}
	if got.CitizenID != f.citizen || got.ID == uuid.Nil {
		t.Fatalf("unexpected identity fields %+v", got)
	}
	if got.Sector != complaint.SectorRoads {
		t.Fatalf("expected inferred sector Roads got %q", got.Sector)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected exactly one complaint got %d", f.store.count())
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0] != events.ComplaintCreated {
		t.Fatalf("expected created event got %v", f.publisher.events)
	}
}

func TestSubmitKeepsSuppliedSector(t *testing.T) {
	f := newIntakeFixture()
	in := validSubmission()
	in.Sector = complaint.SectorTransport

	got, err := f.svc.Submit(context.Background(), f.token, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Sector != complaint.SectorTransport {
		t.Fatalf("sector = %q", got.Sector)
	}
}

func TestSubmitClassificationFailureCreatesNothing(t *testing.T) {
	f := newIntakeFixture()
	f.classifier.err = fmt.Errorf("%w: status 502", classifier.ErrUnavailable)

	_, err := f.svc.Submit(context.Background(), f.token, validSubmission())
	if !errors.Is(err, ErrClassificationUnavailable) {
		t.Fatalf("expected ErrClassificationUnavailable got %v", err)
	}
	if f.store.count() != 0 || f.store.creates != 0 {
		t.Fatalf("no complaint should be created")
	}
	if len(f.publisher.events) != 0 {
		t.Fatalf("no event should be published")
	}
}

func TestSubmitValidationHappensBeforeClassification(t *testing.T) {
	tests := []struct {
		name  string
		input SubmitInput
		field string
	}{
		{"empty text", SubmitInput{Text: "   ", Location: complaint.Location{State: "X", District: "Y"}}, "text"},
		{"too long", SubmitInput{Text: strings.Repeat("a", MaxTextLength+1), Location: complaint.Location{State: "X", District: "Y"}}, "text"},
		{"missing location", SubmitInput{Text: "no water"}, "location"},
		{"missing district", SubmitInput{Text: "no water", Location: complaint.Location{State: "X"}}, "location"},
		{"bad coordinates", SubmitInput{Text: "no water", Location: complaint.Location{State: "X", District: "Y", Lat: ptr(95.0), Lng: ptr(10.0)}}, "location"},
		{"bad sector", SubmitInput{Text: "no water", Location: complaint.Location{State: "X", District: "Y"}, Sector: "Space"}, "sector"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newIntakeFixture()
			_, err := f.svc.Submit(context.Background(), f.token, tc.input)
			var verr *ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("field = %q want %q", verr.Field, tc.field)
			}
			if f.classifier.calls != 0 {
				t.Fatalf("classifier must not be called")
			}
			if f.store.count() != 0 {
				t.Fatalf("no complaint should be created")
			}
		})
	}
}

func TestSubmitCredentialChecks(t *testing.T) {
	f := newIntakeFixture()
	staff := mustToken(f.jwt, uuid.New(), auth.RoleStaff, "Water")
	other := auth.NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)
	forged := mustToken(other, f.citizen, auth.RoleCitizen, "")

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", ErrUnauthenticated},
		{"garbage", "not-a-token", ErrUnauthenticated},
		{"wrong signature", forged, ErrUnauthenticated},
		{"staff role", staff, ErrForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), tc.token, validSubmission())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}
	if f.classifier.calls != 0 || f.store.count() != 0 {
		t.Fatalf("rejected credentials must not reach classification or storage")
	}
}

func TestSubmitUnknownCitizen(t *testing.T) {
	f := newIntakeFixture()
	stranger := mustToken(f.jwt, uuid.New(), auth.RoleCitizen, "")

	_, err := f.svc.Submit(context.Background(), stranger, validSubmission())
	if !errors.Is(err, ErrUnknownCitizen) {
		t.Fatalf("expected ErrUnknownCitizen got %v", err)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("classifier must not be called for unknown citizens")
	}
}

func TestSubmitPersistenceFailure(t *testing.T) {
	f := newIntakeFixture()
	f.store.createErr = errStoreDown

	_, err := f.svc.Submit(context.Background(), f.token, validSubmission())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence got %v", err)
	}
	if f.store.count() != 0 {
		t.Fatalf("no complaint should be stored")
	}
}

func TestSubmitCitizenLookupFailure(t *testing.T) {
	f := newIntakeFixture()
	f.svc.citizens = stubCitizens{err: errStoreDown}

	_, err := f.svc.Submit(context.Background(), f.token, validSubmission())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence got %v", err)
	}
}

func ptr(v float64) *float64 { return &v }
