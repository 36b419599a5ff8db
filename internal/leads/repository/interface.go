package repository

import (
	"context"
	"time"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ListLeads(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
	ListUnassignedLeads(ctx context.Context) ([]domain.Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	CreateLead(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	// SaveLead writes every mutable field of lead back to storage.
	SaveLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
}

// LeadAssigner swaps the counsellor pointer on a single lead.
type LeadAssigner interface {
	AssignLead(ctx context.Context, leadID, counsellorID uuid.UUID) error
}

// CounsellorReader provides access to counsellors and their lead history.
type CounsellorReader interface {
	GetCounsellor(ctx context.Context, id uuid.UUID) (domain.Counsellor, error)
	GetCounsellorByUserID(ctx context.Context, userID uuid.UUID) (domain.Counsellor, error)
	ListActiveCounsellors(ctx context.Context) ([]domain.Counsellor, error)
	// ListLeadsByCounsellors returns every lead currently owned by any of ids.
	ListLeadsByCounsellors(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error)
}

// ActivityLogger records the append-only interaction log.
type ActivityLogger interface {
	AddActivity(ctx context.Context, activity domain.LeadActivity) (domain.LeadActivity, error)
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]domain.LeadActivity, error)
}

// DealWriter persists conversions and transfers together with the lead update.
type DealWriter interface {
	ConvertLead(ctx context.Context, lead domain.Lead, business domain.Business) (domain.Business, error)
	TransferLead(ctx context.Context, lead domain.Lead, transfer domain.Transfer) (domain.Transfer, error)
}

// StatsReader provides aggregates for the dashboard and workload views.
type StatsReader interface {
	CountByStatus(ctx context.Context, counsellorID *uuid.UUID) (map[domain.LeadStatus]int, error)
	CountUnassigned(ctx context.Context) (int, error)
	MonthlyLeadCounts(ctx context.Context, since time.Time) ([]MonthlyCount, error)
	CounsellorWorkloads(ctx context.Context) ([]WorkloadRow, error)
}

// LeadsRepository composes all lead-related interfaces.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	LeadAssigner
	CounsellorReader
	ActivityLogger
	DealWriter
	StatsReader
}

var _ LeadsRepository = (*Repository)(nil)
