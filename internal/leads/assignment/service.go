package assignment

import (
	"context"
	"errors"
	"fmt"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"
	"admissions_crm/platform/redislock"
)

const (
	opAssignUnassigned = "leads.assignment.assign_unassigned"
	opAssignLeads      = "leads.assignment.assign_leads"

	// BatchLockName serialises every bulk assignment path across processes.
	BatchLockName = "leads:assignment"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Store
	ListUnassignedLeads(ctx context.Context) ([]domain.Lead, error)
	ListActiveCounsellors(ctx context.Context) ([]domain.Counsellor, error)
	AddActivity(ctx context.Context, activity domain.LeadActivity) (domain.LeadActivity, error)
}

// Locker is satisfied by *redislock.Locker.
type Locker interface {
	Acquire(ctx context.Context, name string) (func(context.Context) error, error)
}

type Service struct {
	repo   Repository
	engine *Engine
	locker Locker
	bus    events.Bus
	log    *logger.Logger
}

// NewService wires the engine. locker may be nil, in which case batches are
// not serialised.
func NewService(repo Repository, locker Locker, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, engine: NewEngine(repo), locker: locker, bus: bus, log: log}
}

// AssignUnassigned distributes every lead without a counsellor.
func (s *Service) AssignUnassigned(ctx context.Context, method Method) (Result, error) {
	release, err := AcquireBatchLock(ctx, s.locker, s.log, opAssignUnassigned)
	if err != nil {
		return Result{}, err
	}
	defer release()

	leads, err := s.repo.ListUnassignedLeads(ctx)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to load unassigned leads", err).WithOp(opAssignUnassigned)
	}
	return s.assign(ctx, leads, method, opAssignUnassigned)
}

// AssignLeads distributes the given leads, skipping any that already have a
// counsellor.
func (s *Service) AssignLeads(ctx context.Context, leads []domain.Lead, method Method) (Result, error) {
	release, err := AcquireBatchLock(ctx, s.locker, s.log, opAssignLeads)
	if err != nil {
		return Result{}, err
	}
	defer release()

	pending := make([]domain.Lead, 0, len(leads))
	for _, lead := range leads {
		if !lead.IsAssigned() {
			pending = append(pending, lead)
		}
	}
	return s.assign(ctx, pending, method, opAssignLeads)
}

func (s *Service) assign(ctx context.Context, leads []domain.Lead, method Method, op string) (Result, error) {
	counsellors, err := s.repo.ListActiveCounsellors(ctx)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to load counsellors", err).WithOp(op)
	}

	result, err := s.engine.Assign(ctx, leads, counsellors, method)
	if errors.Is(err, ErrNoActiveCounsellors) {
		return Result{}, apperr.Wrap(apperr.KindConflict, err.Error(), err).WithOp(op)
	}
	s.log.AssignmentBatch(string(method), result.Assigned, result.Failed)

	// Leads written before a cancellation are already assigned and still need
	// their activity and notification.
	recordCtx := ctx
	if err != nil {
		recordCtx = context.WithoutCancel(ctx)
	}
	for _, a := range result.Assignments {
		s.recordAssignment(recordCtx, a, method)
	}
	if err != nil {
		return result, apperr.Wrap(apperr.KindInternal, "assignment batch interrupted", err).WithOp(op)
	}
	return result, nil
}

func (s *Service) recordAssignment(ctx context.Context, a Assignment, method Method) {
	counsellorID := a.Counsellor.ID
	_, err := s.repo.AddActivity(ctx, domain.LeadActivity{
		LeadID:       a.Lead.ID,
		CounsellorID: &counsellorID,
		Type:         domain.ActivityAssigned,
		Description:  fmt.Sprintf("Lead assigned to %s using %s method", a.Counsellor.FullName(), method.Label()),
	})
	if err != nil {
		s.log.Error("failed to record assignment activity", "error", err, "leadId", a.Lead.ID)
	}

	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           a.Lead.ID,
		CounsellorID:     a.Counsellor.ID,
		CounsellorUserID: a.Counsellor.UserID,
		CounsellorEmail:  a.Counsellor.Email,
		CounsellorName:   a.Counsellor.FullName(),
		StudentName:      a.Lead.FullName(),
		CourseInterested: a.Lead.CourseInterested,
		Method:           string(method),
		Message:          fmt.Sprintf("New lead assigned: %s %s - %s", a.Lead.FirstName, a.Lead.LastName, a.Lead.CourseInterested),
	})
}

// AcquireBatchLock takes the shared bulk-assignment lock. A nil locker
// yields a no-op release.
func AcquireBatchLock(ctx context.Context, locker Locker, log *logger.Logger, op string) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	unlock, err := locker.Acquire(ctx, BatchLockName)
	if errors.Is(err, redislock.ErrNotAcquired) {
		return nil, apperr.Conflict("another assignment batch is already running").WithOp(op)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to acquire assignment lock", err).WithOp(op)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release assignment lock", "error", err)
		}
	}, nil
}
