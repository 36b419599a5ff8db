package aiassign

import (
	"context"
	"errors"
	"fmt"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads/assignment"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"

	"github.com/google/uuid"
)

const (
	opAssignOne = "leads.aiassign.assign_one"
	opAssignAll = "leads.aiassign.assign_all"

	methodName = "ai"
)

type Repository interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	SaveLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	ListUnassignedLeads(ctx context.Context) ([]domain.Lead, error)
	ListActiveCounsellors(ctx context.Context) ([]domain.Counsellor, error)
	ListLeadsByCounsellors(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error)
	AddActivity(ctx context.Context, activity domain.LeadActivity) (domain.LeadActivity, error)
}

// Decision is the outcome of a single AI assignment.
type Decision struct {
	Lead       domain.Lead       `json:"lead"`
	Counsellor domain.Counsellor `json:"counsellor"`
	Breakdown  Breakdown         `json:"breakdown"`
	Reason     string            `json:"reason"`
}

type BulkResult struct {
	Assigned int `json:"assigned"`
	Failed   int `json:"failed"`
}

type Service struct {
	repo   Repository
	locker assignment.Locker
	bus    events.Bus
	log    *logger.Logger
}

func NewService(repo Repository, locker assignment.Locker, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, locker: locker, bus: bus, log: log}
}

// AssignOne scores every active counsellor for the lead and assigns it to
// the best one.
func (s *Service) AssignOne(ctx context.Context, leadID uuid.UUID) (Decision, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return Decision{}, apperr.NotFound("lead not found").WithOp(opAssignOne)
	}
	if err != nil {
		return Decision{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err).WithOp(opAssignOne)
	}

	counsellors, err := s.repo.ListActiveCounsellors(ctx)
	if err != nil {
		return Decision{}, apperr.Wrap(apperr.KindInternal, "failed to load counsellors", err).WithOp(opAssignOne)
	}
	if len(counsellors) == 0 {
		return Decision{}, apperr.Wrap(apperr.KindConflict, ErrNoCounsellors.Error(), ErrNoCounsellors).WithOp(opAssignOne)
	}

	decision, err := s.assign(ctx, lead, counsellors)
	if err != nil {
		return Decision{}, apperr.Wrap(apperr.KindInternal, "failed to assign lead", err).WithOp(opAssignOne)
	}

	s.announce(ctx, decision, fmt.Sprintf("New student assigned: %s %s - Interested in %s",
		lead.FirstName, lead.LastName, lead.CourseInterested))
	return decision, nil
}

// AssignAll runs AssignOne's scoring over every unassigned lead. Counsellor
// history is re-read for each lead, so later leads see earlier placements.
// Cost grows with leads x counsellors x history.
func (s *Service) AssignAll(ctx context.Context) (BulkResult, error) {
	release, err := assignment.AcquireBatchLock(ctx, s.locker, s.log, opAssignAll)
	if err != nil {
		return BulkResult{}, err
	}
	defer release()

	leads, err := s.repo.ListUnassignedLeads(ctx)
	if err != nil {
		return BulkResult{}, apperr.Wrap(apperr.KindInternal, "failed to load unassigned leads", err).WithOp(opAssignAll)
	}
	if len(leads) == 0 {
		return BulkResult{}, nil
	}

	counsellors, err := s.repo.ListActiveCounsellors(ctx)
	if err != nil {
		return BulkResult{}, apperr.Wrap(apperr.KindInternal, "failed to load counsellors", err).WithOp(opAssignAll)
	}
	if len(counsellors) == 0 {
		return BulkResult{}, apperr.Wrap(apperr.KindConflict, ErrNoCounsellors.Error(), ErrNoCounsellors).WithOp(opAssignAll)
	}

	var result BulkResult
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		decision, err := s.assign(ctx, lead, counsellors)
		if err != nil {
			s.log.Warn("ai assignment failed for lead", "error", err, "leadId", lead.ID)
			result.Failed++
			continue
		}
		result.Assigned++
		s.announce(ctx, decision, fmt.Sprintf("New lead assigned: %s %s - %s",
			lead.FirstName, lead.LastName, lead.CourseInterested))
	}

	s.log.AssignmentBatch(methodName, result.Assigned, result.Failed)
	return result, nil
}

func (s *Service) assign(ctx context.Context, lead domain.Lead, counsellors []domain.Counsellor) (Decision, error) {
	ids := make([]uuid.UUID, len(counsellors))
	for i, c := range counsellors {
		ids[i] = c.ID
	}
	portfolio, err := s.repo.ListLeadsByCounsellors(ctx, ids)
	if err != nil {
		return Decision{}, err
	}

	best, breakdown, err := SelectBest(lead, counsellors, GroupByCounsellor(portfolio))
	if err != nil {
		return Decision{}, err
	}
	reason := Reason(breakdown, best)

	lead.AssignTo(best.ID)
	lead.Notes = domain.AppendNote(lead.Notes, reason)
	saved, err := s.repo.SaveLead(ctx, lead)
	if err != nil {
		return Decision{}, err
	}

	counsellorID := best.ID
	if _, err := s.repo.AddActivity(ctx, domain.LeadActivity{
		LeadID:       saved.ID,
		CounsellorID: &counsellorID,
		Type:         domain.ActivityAssigned,
		Description:  reason,
	}); err != nil {
		s.log.Error("failed to record assignment activity", "error", err, "leadId", saved.ID)
	}

	return Decision{Lead: saved, Counsellor: best, Breakdown: breakdown, Reason: reason}, nil
}

func (s *Service) announce(ctx context.Context, d Decision, message string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           d.Lead.ID,
		CounsellorID:     d.Counsellor.ID,
		CounsellorUserID: d.Counsellor.UserID,
		CounsellorEmail:  d.Counsellor.Email,
		CounsellorName:   d.Counsellor.FullName(),
		StudentName:      d.Lead.FullName(),
		CourseInterested: d.Lead.CourseInterested,
		Method:           methodName,
		Message:          message,
	})
}
