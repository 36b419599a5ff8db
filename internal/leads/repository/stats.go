package repository

import (
	"context"
	"fmt"
	"time"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

const (
	opCountByStatus      = "leads.repository.count_by_status"
	opCountUnassigned    = "leads.repository.count_unassigned"
	opMonthlyLeadCounts  = "leads.repository.monthly_lead_counts"
	opCounsellorWorkload = "leads.repository.counsellor_workloads"
)

// WorkloadRow aggregates one active counsellor's portfolio.
type WorkloadRow struct {
	Counsellor domain.Counsellor
	Total      int
	Open       int
	Won        int
	Lost       int
}

// CountByStatus counts leads per status, optionally for one counsellor.
func (r *Repository) CountByStatus(ctx context.Context, counsellorID *uuid.UUID) (map[domain.LeadStatus]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE $1::uuid IS NULL OR assigned_counsellor_id = $1
		GROUP BY status
	`, counsellorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opCountByStatus, err)
	}
	defer rows.Close()

	counts := make(map[domain.LeadStatus]int, len(domain.LeadStatuses))
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", opCountByStatus, err)
		}
		counts[domain.LeadStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *Repository) CountUnassigned(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE assigned_counsellor_id IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", opCountUnassigned, err)
	}
	return n, nil
}

// MonthlyLeadCounts returns lead creation counts per month from since
// onwards. Months without leads are absent.
func (r *Repository) MonthlyLeadCounts(ctx context.Context, since time.Time) ([]MonthlyCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('month', created_at) AS month, COUNT(*)
		FROM leads
		WHERE created_at >= $1
		GROUP BY month
		ORDER BY month ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opMonthlyLeadCounts, err)
	}
	defer rows.Close()

	items := make([]MonthlyCount, 0, 6)
	for rows.Next() {
		var mc MonthlyCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", opMonthlyLeadCounts, err)
		}
		items = append(items, mc)
	}
	return items, rows.Err()
}

func (r *Repository) CounsellorWorkloads(ctx context.Context) ([]WorkloadRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.user_id, c.first_name, c.last_name, c.email, c.department, c.is_active, c.created_at,
			COUNT(l.id) AS total,
			COUNT(l.id) FILTER (WHERE l.status IN ('NEW', 'CONTACTED', 'QUALIFIED')) AS open,
			COUNT(l.id) FILTER (WHERE l.status = 'CLOSED_WON') AS won,
			COUNT(l.id) FILTER (WHERE l.status = 'CLOSED_LOST') AS lost
		FROM counsellors c
		LEFT JOIN leads l ON l.assigned_counsellor_id = c.id
		WHERE c.is_active = true
		GROUP BY c.id
		ORDER BY c.created_at ASC, c.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opCounsellorWorkload, err)
	}
	defer rows.Close()

	items := make([]WorkloadRow, 0)
	for rows.Next() {
		var w WorkloadRow
		c := &w.Counsellor
		if err := rows.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.Department,
			&c.IsActive, &c.CreatedAt, &w.Total, &w.Open, &w.Won, &w.Lost); err != nil {
			return nil, fmt.Errorf("%s: %w", opCounsellorWorkload, err)
		}
		items = append(items, w)
	}
	return items, rows.Err()
}
