package repository

import (
	"context"
	"errors"
	"fmt"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrCounsellorNotFound = errors.New("counsellor not found")

const (
	opGetCounsellor         = "leads.repository.get_counsellor"
	opListActiveCounsellors = "leads.repository.list_active_counsellors"
)

const counsellorColumns = `id, user_id, first_name, last_name, email, department, is_active, created_at`

func scanCounsellor(row rowScanner) (domain.Counsellor, error) {
	var c domain.Counsellor
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.Department, &c.IsActive, &c.CreatedAt)
	return c, err
}

func (r *Repository) GetCounsellor(ctx context.Context, id uuid.UUID) (domain.Counsellor, error) {
	return r.getCounsellor(ctx, `SELECT `+counsellorColumns+` FROM counsellors WHERE id = $1`, id)
}

// GetCounsellorByUserID resolves the counsellor behind an authenticated user.
func (r *Repository) GetCounsellorByUserID(ctx context.Context, userID uuid.UUID) (domain.Counsellor, error) {
	return r.getCounsellor(ctx, `SELECT `+counsellorColumns+` FROM counsellors WHERE user_id = $1`, userID)
}

func (r *Repository) getCounsellor(ctx context.Context, query string, arg uuid.UUID) (domain.Counsellor, error) {
	c, err := scanCounsellor(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Counsellor{}, ErrCounsellorNotFound
	}
	if err != nil {
		return domain.Counsellor{}, fmt.Errorf("%s: %w", opGetCounsellor, err)
	}
	return c, nil
}

// ListActiveCounsellors returns active counsellors in a stable order. Every
// assignment policy that breaks ties by iteration order depends on it.
func (r *Repository) ListActiveCounsellors(ctx context.Context) ([]domain.Counsellor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+counsellorColumns+`
		FROM counsellors
		WHERE is_active = true
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opListActiveCounsellors, err)
	}
	defer rows.Close()

	items := make([]domain.Counsellor, 0)
	for rows.Next() {
		c, err := scanCounsellor(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opListActiveCounsellors, err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
