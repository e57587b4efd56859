package complaint

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("complaint not found")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrInvalidSector   = errors.New("invalid sector")
)

// Status is the canonical complaint lifecycle value.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In-Progress"
	StatusResolved   Status = "Resolved"
)

// Severity is the urgency tier assigned by classification. S is most urgent.
type Severity string

const (
	SeverityS Severity = "S"
	SeverityA Severity = "A"
	SeverityB Severity = "B"
	SeverityC Severity = "C"
)

const (
	SectorWater       = "Water"
	SectorRoads       = "Roads"
	SectorElectricity = "Electricity"
	SectorHealth      = "Health"
	SectorEducation   = "Education"
	SectorSanitation  = "Sanitation"
	SectorTransport   = "Transport"
	SectorOthers      = "Others"
)

var (
	validStatuses = map[Status]struct{}{
		StatusPending:    {},
		StatusInProgress: {},
		StatusResolved:   {},
	}
	severityRanks = map[Severity]int{
		SeverityS: 1,
		SeverityA: 2,
		SeverityB: 3,
		SeverityC: 4,
	}
	validSectors = map[string]struct{}{
		SectorWater:       {},
		SectorRoads:       {},
		SectorElectricity: {},
		SectorHealth:      {},
		SectorEducation:   {},
		SectorSanitation:  {},
		SectorTransport:   {},
		SectorOthers:      {},
	}
)

// Location describes where the complaint was raised.
type Location struct {
	State       string   `json:"state"`
	District    string   `json:"district"`
	SubDistrict string   `json:"sub_district,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// Complaint is a citizen grievance after routing.
type Complaint struct {
	ID         uuid.UUID `json:"id"`
	CitizenID  uuid.UUID `json:"citizen_id"`
	Text       string    `json:"text"`
	Location   Location  `json:"location"`
	Sector     string    `json:"sector"`
	Department string    `json:"department"`
	Severity   Severity  `json:"severity"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusChange is one audit row for a status write.
type StatusChange struct {
	ID          uuid.UUID `json:"id"`
	ComplaintID uuid.UUID `json:"complaint_id"`
	OldStatus   Status    `json:"old_status"`
	NewStatus   Status    `json:"new_status"`
	ChangedBy   uuid.UUID `json:"changed_by"`
	ChangedAt   time.Time `json:"changed_at"`
}

// CreateInput carries a fully routed complaint to the store.
type CreateInput struct {
	CitizenID  uuid.UUID
	Text       string
	Location   Location
	Sector     string
	Department string
	Severity   Severity
}

// UpdateStatusInput carries a status write and its author.
type UpdateStatusInput struct {
	ID        uuid.UUID
	Status    Status
	ChangedBy uuid.UUID
}

// Filter narrows complaint listings.
type Filter struct {
	CitizenID  *uuid.UUID
	Department string
	State      string
	District   string
	Status     []Status
	Severity   []Severity
	Search     string
	Sort       []SortField
	Limit      int
	Offset     int
}

// SortField is one ORDER BY entry over a whitelisted field.
type SortField struct {
	Field      string
	Descending bool
}

// Normalize trims free-form location parts.
func (l Location) Normalize() Location {
	l.State = strings.TrimSpace(l.State)
	l.District = strings.TrimSpace(l.District)
	l.SubDistrict = strings.TrimSpace(l.SubDistrict)
	return l
}

// Resolvable reports whether the location names at least a state and district.
func (l Location) Resolvable() bool {
	return strings.TrimSpace(l.State) != "" && strings.TrimSpace(l.District) != ""
}

// ValidCoordinates rejects coordinates outside the WGS84 range or half-set pairs.
func (l Location) ValidCoordinates() bool {
	if l.Lat == nil && l.Lng == nil {
		return true
	}
	if l.Lat == nil || l.Lng == nil {
		return false
	}
	return *l.Lat >= -90 && *l.Lat <= 90 && *l.Lng >= -180 && *l.Lng <= 180
}

// ParseStatus accepts only the canonical spelling.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if _, ok := validStatuses[s]; !ok {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// IsValid reports whether s belongs to the allowed set.
func (s Status) IsValid() bool {
	_, ok := validStatuses[s]
	return ok
}

// ParseSeverity accepts S, A, B or C.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := severityRanks[s]; !ok {
		return "", ErrInvalidSeverity
	}
	return s, nil
}

// Rank orders severities from 1 (most urgent) to 4. Unknown values rank last.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return len(severityRanks) + 1
}

// IsValidSector reports whether sector is one of the known sectors.
func IsValidSector(sector string) bool {
	_, ok := validSectors[sector]
	return ok
}

var sectorKeywords = []struct {
	sector   string
	keywords []string
}{
	{SectorElectricity, []string{"electric", "power"}},
	{SectorWater, []string{"water"}},
	{SectorSanitation, []string{"waste", "sewage", "sanitation"}},
	{SectorTransport, []string{"transport", "traffic"}},
	{SectorRoads, []string{"public works", "road"}},
	{SectorHealth, []string{"health", "hospital"}},
	{SectorEducation, []string{"education", "school"}},
}

// InferSector maps a department name to a sector by keyword.
func InferSector(department string) string {
	name := strings.ToLower(department)
	for _, candidate := range sectorKeywords {
		for _, kw := range candidate.keywords {
			if strings.Contains(name, kw) {
				return candidate.sector
			}
		}
	}
	return SectorOthers
}
