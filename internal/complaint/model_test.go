package complaint

import (
	"errors"
	"testing"
)

func TestParseStatusIsCanonical(t *testing.T) {
	valid := []string{"Pending", "In-Progress", "Resolved", " Resolved "}
	for _, raw := range valid {
		if _, err := ParseStatus(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}

	invalid := []string{"", "pending", "resolved", "In Progress", "in-progress", "Cancelled"}
	for _, raw := range invalid {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("expected %q to be rejected, got %v", raw, err)
		}
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityS, SeverityA, SeverityB, SeverityC}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Fatalf("%s should rank before %s", order[i-1], order[i])
		}
	}
	if Severity("Z").Rank() <= SeverityC.Rank() {
		t.Fatalf("unknown severity should rank last")
	}
}

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity(" b ")
	if err != nil || got != SeverityB {
		t.Fatalf("expected B, got %q (%v)", got, err)
	}
	if _, err := ParseSeverity("D"); !errors.Is(err, ErrInvalidSeverity) {
		t.Fatalf("expected invalid severity, got %v", err)
	}
}

func TestInferSector(t *testing.T) {
	tests := map[string]string{
		"State Electricity Board":     SectorElectricity,
		"State Water Supply":          SectorWater,
		"District Waste Management":   SectorSanitation,
		"State Public Works":          SectorRoads,
		"Central Transport Authority": SectorTransport,
		"District Hospital Board":     SectorHealth,
		"Municipal Library":           SectorOthers,
	}
	for dept, want := range tests {
		if got := InferSector(dept); got != want {
			t.Fatalf("InferSector(%q) = %q want %q", dept, got, want)
		}
	}
}

func TestLocationChecks(t *testing.T) {
	lat, lng := 19.07, 72.87
	bad := 200.0

	tests := []struct {
		name       string
		loc        Location
		resolvable bool
		coords     bool
	}{
		{"state and district", Location{State: "X", District: "Y"}, true, true},
		{"missing district", Location{State: "X"}, false, true},
		{"blank parts", Location{State: " ", District: " "}, false, true},
		{"coordinates", Location{State: "X", District: "Y", Lat: &lat, Lng: &lng}, true, true},
		{"half coordinates", Location{State: "X", District: "Y", Lat: &lat}, true, false},
		{"out of range", Location{State: "X", District: "Y", Lat: &lat, Lng: &bad}, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.loc.Resolvable(); got != tc.resolvable {
				t.Fatalf("Resolvable() = %v", got)
			}
			if got := tc.loc.ValidCoordinates(); got != tc.coords {
				t.Fatalf("ValidCoordinates() = %v", got)
			}
		})
	}
}

func TestParseSortWhitelist(t *testing.T) {
	fields := ParseSort("severity,-created_at,password,-")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields got %v", fields)
	}
	if fields[0].Field != "severity" || fields[0].Descending {
		t.Fatalf("unexpected first field %+v", fields[0])
	}
	if fields[1].Field != "created_at" || !fields[1].Descending {
		t.Fatalf("unexpected second field %+v", fields[1])
	}

	if got := orderBy(fields); got != " ORDER BY severity_rank ASC, created_at DESC, id ASC" {
		t.Fatalf("unexpected order clause %q", got)
	}
	if got := orderBy(nil); got != " ORDER BY created_at DESC" {
		t.Fatalf("unexpected default order %q", got)
	}
}
