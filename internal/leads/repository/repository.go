package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

const (
	opCreateLead   = "leads.repository.create_lead"
	opGetLead      = "leads.repository.get_lead"
	opListLeads    = "leads.repository.list_leads"
	opSaveLead     = "leads.repository.save_lead"
	opAssignLead   = "leads.repository.assign_lead"
	opListByOwners = "leads.repository.list_leads_by_counsellors"
)

const leadColumns = `
	id, first_name, last_name, email, phone, school_name, graduation_status, graduation_course,
	graduation_year, graduation_college, course_interested, industry, source_id, status, priority,
	expected_value, actual_value, notes, conversion_score, academic_profile, enrichment_notes,
	routed_to, routing_reason, assigned_counsellor_id, previous_counsellor_id, next_follow_up,
	last_contact_date, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateLeadParams struct {
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	SchoolName        string
	GraduationStatus  domain.GraduationStatus
	GraduationCourse  string
	GraduationYear    *int
	GraduationCollege string
	CourseInterested  string
	Industry          string
	SourceID          *uuid.UUID
	ExpectedValue     float64
	Notes             string
	Priority          domain.Priority
	AssignedTo        *uuid.UUID
}

// ListParams filters the lead list. Zero values mean "no filter".
type ListParams struct {
	Status       *domain.LeadStatus
	CounsellorID *uuid.UUID
	Unassigned   bool
	Search       string
	Offset       int
	Limit        int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		lead     domain.Lead
		grad     string
		status   string
		priority string
		routedTo string
	)
	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone, &lead.SchoolName, &grad,
		&lead.GraduationCourse, &lead.GraduationYear, &lead.GraduationCollege, &lead.CourseInterested,
		&lead.Industry, &lead.SourceID, &status, &priority, &lead.ExpectedValue, &lead.ActualValue,
		&lead.Notes, &lead.ConversionScore, &lead.AcademicProfile, &lead.EnrichmentNotes, &routedTo,
		&lead.RoutingReason, &lead.AssignedCounsellorID, &lead.PreviousCounsellorID, &lead.NextFollowUp,
		&lead.LastContactDate, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.GraduationStatus = domain.GraduationStatus(grad)
	lead.Status = domain.LeadStatus(status)
	lead.Priority = domain.Priority(priority)
	lead.RoutedTo = domain.Route(routedTo)
	return lead, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()
	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) CreateLead(ctx context.Context, p CreateLeadParams) (domain.Lead, error) {
	priority := p.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	grad := p.GraduationStatus
	if grad == "" {
		grad = domain.GraduationNo
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			first_name, last_name, email, phone, school_name, graduation_status, graduation_course,
			graduation_year, graduation_college, course_interested, industry, source_id, status, priority,
			expected_value, notes, assigned_counsellor_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+leadColumns,
		p.FirstName, p.LastName, p.Email, p.Phone, p.SchoolName, string(grad), p.GraduationCourse,
		p.GraduationYear, p.GraduationCollege, p.CourseInterested, p.Industry, p.SourceID,
		string(domain.StatusNew), string(priority), p.ExpectedValue, p.Notes, p.AssignedTo,
	)
	lead, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("%s: %w", opCreateLead, err)
	}
	return lead, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("%s: %w", opGetLead, err)
	}
	return lead, nil
}

func (r *Repository) ListLeads(ctx context.Context, p ListParams) ([]domain.Lead, int, error) {
	var (
		where []string
		args  []any
	)
	if p.Status != nil {
		args = append(args, string(*p.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.CounsellorID != nil {
		args = append(args, *p.CounsellorID)
		where = append(where, fmt.Sprintf("assigned_counsellor_id = $%d", len(args)))
	}
	if p.Unassigned {
		where = append(where, "assigned_counsellor_id IS NULL")
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR course_interested ILIKE $%d)", n, n, n, n))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", opListLeads, err)
	}

	limit := p.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, max(p.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM leads%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		leadColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", opListLeads, err)
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", opListLeads, err)
	}
	return leads, total, nil
}

// ListUnassignedLeads returns leads without a counsellor, oldest first, so
// batch assignment sees them in arrival order.
func (r *Repository) ListUnassignedLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assigned_counsellor_id IS NULL
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListLeads, err)
	}
	return collectLeads(rows)
}

func (r *Repository) ListLeadsByCounsellors(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error) {
	if len(ids) == 0 {
		return []domain.Lead{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assigned_counsellor_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListByOwners, err)
	}
	return collectLeads(rows)
}

func (r *Repository) SaveLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	saved, err := saveLead(ctx, r.pool, lead)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("%s: %w", opSaveLead, err)
	}
	return saved, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func saveLead(ctx context.Context, q queryRower, lead domain.Lead) (domain.Lead, error) {
	return scanLead(q.QueryRow(ctx, `
		UPDATE leads SET
			first_name = $2, last_name = $3, email = $4, phone = $5, school_name = $6,
			graduation_status = $7, graduation_course = $8, graduation_year = $9, graduation_college = $10,
			course_interested = $11, industry = $12, source_id = $13, status = $14, priority = $15,
			expected_value = $16, actual_value = $17, notes = $18, conversion_score = $19,
			academic_profile = $20, enrichment_notes = $21, routed_to = $22, routing_reason = $23,
			assigned_counsellor_id = $24, previous_counsellor_id = $25, next_follow_up = $26,
			last_contact_date = $27, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		lead.ID, lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.SchoolName,
		string(lead.GraduationStatus), lead.GraduationCourse, lead.GraduationYear, lead.GraduationCollege,
		lead.CourseInterested, lead.Industry, lead.SourceID, string(lead.Status), string(lead.Priority),
		lead.ExpectedValue, lead.ActualValue, lead.Notes, lead.ConversionScore,
		lead.AcademicProfile, lead.EnrichmentNotes, string(lead.RoutedTo), lead.RoutingReason,
		lead.AssignedCounsellorID, lead.PreviousCounsellorID, lead.NextFollowUp,
		lead.LastContactDate,
	))
}

// AssignLead points the lead at counsellorID. The prior counsellor, if any
// and different, is kept in previous_counsellor_id.
func (r *Repository) AssignLead(ctx context.Context, leadID, counsellorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			previous_counsellor_id = CASE
				WHEN assigned_counsellor_id IS NOT NULL AND assigned_counsellor_id <> $2 THEN assigned_counsellor_id
				ELSE previous_counsellor_id
			END,
			assigned_counsellor_id = $2,
			updated_at = now()
		WHERE id = $1
	`, leadID, counsellorID)
	if err != nil {
		return fmt.Errorf("%s: %w", opAssignLead, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MonthlyCount is the number of leads created in one calendar month.
type MonthlyCount struct {
	Month time.Time
	Count int
}
