package repository

import (
	"context"
	"fmt"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

const (
	opAddActivity    = "leads.repository.add_activity"
	opListActivities = "leads.repository.list_activities"
)

func (r *Repository) AddActivity(ctx context.Context, a domain.LeadActivity) (domain.LeadActivity, error) {
	var (
		out          domain.LeadActivity
		activityType string
	)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_activities (lead_id, counsellor_id, activity_type, description, scheduled_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, lead_id, counsellor_id, activity_type, description, scheduled_at, completed_at, created_at
	`, a.LeadID, a.CounsellorID, string(a.Type), a.Description, a.ScheduledAt, a.CompletedAt).Scan(
		&out.ID, &out.LeadID, &out.CounsellorID, &activityType, &out.Description,
		&out.ScheduledAt, &out.CompletedAt, &out.CreatedAt,
	)
	if err != nil {
		return domain.LeadActivity{}, fmt.Errorf("%s: %w", opAddActivity, err)
	}
	out.Type = domain.ActivityType(activityType)
	return out, nil
}

// ListActivities returns the log for one lead, newest first.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID) ([]domain.LeadActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, counsellor_id, activity_type, description, scheduled_at, completed_at, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListActivities, err)
	}
	defer rows.Close()

	items := make([]domain.LeadActivity, 0)
	for rows.Next() {
		var (
			a            domain.LeadActivity
			activityType string
		)
		if err := rows.Scan(&a.ID, &a.LeadID, &a.CounsellorID, &activityType, &a.Description,
			&a.ScheduledAt, &a.CompletedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", opListActivities, err)
		}
		a.Type = domain.ActivityType(activityType)
		items = append(items, a)
	}
	return items, rows.Err()
}
