package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/grievance/internal/db"
)

const complaintColumns = `id, citizen_id, text, state, district, sub_district, lat, lng, sector, department, severity, status, created_at, updated_at`

// sortColumns whitelists the fields a listing may be ordered by.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"severity":   "severity_rank",
	"status":     "status",
	"department": "department",
}

// ParseSort parses "severity,-created_at" keeping only whitelisted fields.
func ParseSort(raw string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := false
		if after, ok := strings.CutPrefix(part, "-"); ok {
			part, desc = after, true
		}
		if _, ok := sortColumns[part]; ok {
			fields = append(fields, SortField{Field: part, Descending: desc})
		}
	}
	return fields
}

// Repository provides access to the complaints tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a routed complaint with status Pending.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Complaint, error) {
	query := `
        INSERT INTO complaints (citizen_id, text, state, district, sub_district, lat, lng, sector, department, severity, severity_rank, status)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)
        RETURNING ` + complaintColumns

	loc := input.Location.Normalize()
	row := r.pool.QueryRow(ctx, query,
		input.CitizenID,
		strings.TrimSpace(input.Text),
		loc.State,
		loc.District,
		loc.SubDistrict,
		loc.Lat,
		loc.Lng,
		input.Sector,
		strings.TrimSpace(input.Department),
		string(input.Severity),
		input.Severity.Rank(),
		string(StatusPending),
	)

	return scanComplaint(row)
}

// Get fetches one complaint.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	return scanComplaint(r.pool.QueryRow(ctx, query, id))
}

// List returns a page of complaints and the total matching the filter.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Complaint, int, error) {
	where, args := whereClause(filter)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM complaints"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints` + where +
		orderBy(filter.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	complaints := []Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, err
		}
		complaints = append(complaints, *c)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return complaints, total, nil
}

// UpdateStatus writes the new status and appends a history row in one transaction.
// Concurrent writers are not version-checked; the last commit wins.
func (r *Repository) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*Complaint, error) {
	var updated *Complaint

	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var old string
		err := tx.QueryRow(ctx, `SELECT status FROM complaints WHERE id = $1 FOR UPDATE`, input.ID).Scan(&old)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		query := `
            UPDATE complaints
            SET status = $1, updated_at = now()
            WHERE id = $2
            RETURNING ` + complaintColumns

		c, err := scanComplaint(tx.QueryRow(ctx, query, string(input.Status), input.ID))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO complaint_status_history (complaint_id, old_status, new_status, changed_by)
            VALUES ($1, $2, $3, $4)`,
			input.ID, old, string(input.Status), input.ChangedBy)
		if err != nil {
			return err
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// History lists status changes oldest first.
func (r *Repository) History(ctx context.Context, complaintID uuid.UUID) ([]StatusChange, error) {
	const query = `
        SELECT id, complaint_id, old_status, new_status, changed_by, changed_at
        FROM complaint_status_history
        WHERE complaint_id = $1
        ORDER BY changed_at ASC
    `

	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []StatusChange{}
	for rows.Next() {
		var (
			h                    StatusChange
			oldStatus, newStatus string
		)
		if err := rows.Scan(&h.ID, &h.ComplaintID, &oldStatus, &newStatus, &h.ChangedBy, &h.ChangedAt); err != nil {
			return nil, err
		}
		h.OldStatus = Status(oldStatus)
		h.NewStatus = Status(newStatus)
		history = append(history, h)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return history, nil
}

// whereClause renders the filter with placeholders numbered from $1.
func whereClause(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(format string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if filter.CitizenID != nil {
		add("citizen_id = $%d", *filter.CitizenID)
	}
	if dept := strings.TrimSpace(filter.Department); dept != "" {
		add("department = $%d", dept)
	}
	if state := strings.TrimSpace(filter.State); state != "" {
		add(`state ILIKE $%d ESCAPE '\'`, escapeLike(state))
	}
	if district := strings.TrimSpace(filter.District); district != "" {
		add(`district ILIKE $%d ESCAPE '\'`, escapeLike(district))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if len(filter.Severity) > 0 {
		severities := make([]string, len(filter.Severity))
		for i, s := range filter.Severity {
			severities[i] = string(s)
		}
		add("severity = ANY($%d)", severities)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add(`text ILIKE $%d ESCAPE '\'`, "%"+escapeLike(search)+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func orderBy(fields []SortField) string {
	if len(fields) == 0 {
		return " ORDER BY created_at DESC"
	}
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := sortColumns[f.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return " ORDER BY created_at DESC"
	}
	// id keeps pagination stable across equal keys
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var (
		c           Complaint
		subDistrict *string
		severity    string
		status      string
	)
	if err := row.Scan(&c.ID, &c.CitizenID, &c.Text, &c.Location.State, &c.Location.District, &subDistrict,
		&c.Location.Lat, &c.Location.Lng, &c.Sector, &c.Department, &severity, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if subDistrict != nil {
		c.Location.SubDistrict = *subDistrict
	}
	c.Severity = Severity(severity)
	c.Status = Status(status)
	return &c, nil
}
