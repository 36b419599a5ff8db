package repository

import (
	"context"
	"errors"
	"fmt"

	"admissions_crm/internal/leads/domain"

	"github.com/jackc/pgx/v5"
)

const (
	opConvertLead  = "leads.repository.convert_lead"
	opTransferLead = "leads.repository.transfer_lead"
)

// ConvertLead stores the business record and the updated lead in one
// transaction.
func (r *Repository) ConvertLead(ctx context.Context, lead domain.Lead, b domain.Business) (domain.Business, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Business{}, fmt.Errorf("%s: %w", opConvertLead, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		out    domain.Business
		status string
	)
	err = tx.QueryRow(ctx, `
		INSERT INTO businesses (lead_id, counsellor_id, title, value, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, counsellor_id, title, value, status, created_at
	`, b.LeadID, b.CounsellorID, b.Title, b.Value, string(b.Status)).Scan(
		&out.ID, &out.LeadID, &out.CounsellorID, &out.Title, &out.Value, &status, &out.CreatedAt,
	)
	if err != nil {
		return domain.Business{}, fmt.Errorf("%s: insert business: %w", opConvertLead, err)
	}
	out.Status = domain.BusinessStatus(status)

	if _, err := saveLead(ctx, tx, lead); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Business{}, ErrNotFound
		}
		return domain.Business{}, fmt.Errorf("%s: update lead: %w", opConvertLead, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Business{}, fmt.Errorf("%s: %w", opConvertLead, err)
	}
	return out, nil
}

// TransferLead stores the transfer record and the reassigned lead in one
// transaction.
func (r *Repository) TransferLead(ctx context.Context, lead domain.Lead, t domain.Transfer) (domain.Transfer, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("%s: %w", opTransferLead, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	status := t.Status
	if status == "" {
		status = "APPROVED"
	}

	var out domain.Transfer
	err = tx.QueryRow(ctx, `
		INSERT INTO lead_transfers (lead_id, from_counsellor_id, to_counsellor_id, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, from_counsellor_id, to_counsellor_id, reason, status, created_at
	`, t.LeadID, t.FromCounsellorID, t.ToCounsellorID, t.Reason, status).Scan(
		&out.ID, &out.LeadID, &out.FromCounsellorID, &out.ToCounsellorID, &out.Reason, &out.Status, &out.CreatedAt,
	)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("%s: insert transfer: %w", opTransferLead, err)
	}

	if _, err := saveLead(ctx, tx, lead); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transfer{}, ErrNotFound
		}
		return domain.Transfer{}, fmt.Errorf("%s: update lead: %w", opTransferLead, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Transfer{}, fmt.Errorf("%s: %w", opTransferLead, err)
	}
	return out, nil
}
