// Package management handles the lead lifecycle outside of assignment and
// routing: creation, status changes, the activity log, follow-ups, losses,
// transfers and conversions.
package management

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/internal/leads/transport"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"
	"admissions_crm/platform/phone"
	"admissions_crm/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opCreate      = "leads.management.create"
	opGet         = "leads.management.get"
	opList        = "leads.management.list"
	opUpdate      = "leads.management.update_status"
	opActivity    = "leads.management.add_activity"
	opFollowUp    = "leads.management.schedule_follow_up"
	opMarkLost    = "leads.management.mark_lost"
	opTransfer    = "leads.management.transfer"
	opConvert     = "leads.management.convert"
	opWorkload    = "leads.management.counsellor_workload"
	opDashboard   = "leads.management.dashboard"
	defaultPage   = 20
	maxPageSize   = 200
	transferState = "APPROVED"
)

// RoleAdmin is the JWT role that bypasses portfolio scoping.
const RoleAdmin = "admin"

// Repository defines the data access interface needed by the management service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.CounsellorReader
	repository.ActivityLogger
	repository.DealWriter
	repository.StatsReader
}

// Actor is the authenticated caller. Non-admin actors may only touch leads
// assigned to the counsellor linked to their user.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// Create stores a new lead with status NEW.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (domain.Lead, error) {
	grad, err := domain.ParseGraduationStatus(req.GraduationStatus)
	if err != nil {
		return domain.Lead{}, apperr.Validation(err.Error()).WithOp(opCreate)
	}
	priority := domain.PriorityMedium
	if req.Priority != "" {
		if priority, err = domain.ParsePriority(req.Priority); err != nil {
			return domain.Lead{}, apperr.Validation(err.Error()).WithOp(opCreate)
		}
	}

	var counsellor domain.Counsellor
	if req.AssignedCounsellorID != nil {
		counsellor, err = s.activeCounsellor(ctx, *req.AssignedCounsellorID, opCreate)
		if err != nil {
			return domain.Lead{}, err
		}
	}

	lead, err := s.repo.CreateLead(ctx, repository.CreateLeadParams{
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             phone.NormalizeE164(req.Phone),
		SchoolName:        strings.TrimSpace(req.SchoolName),
		GraduationStatus:  grad,
		GraduationCourse:  strings.TrimSpace(req.GraduationCourse),
		GraduationYear:    req.GraduationYear,
		GraduationCollege: strings.TrimSpace(req.GraduationCollege),
		CourseInterested:  strings.TrimSpace(req.CourseInterested),
		Industry:          strings.TrimSpace(req.Industry),
		SourceID:          req.SourceID,
		ExpectedValue:     req.ExpectedValue,
		Notes:             sanitize.Text(req.Notes),
		Priority:          priority,
		AssignedTo:        req.AssignedCounsellorID,
	})
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err).WithOp(opCreate)
	}

	if req.AssignedCounsellorID != nil {
		s.addActivity(ctx, lead.ID, &counsellor.ID, domain.ActivityAssigned,
			fmt.Sprintf("Lead assigned to %s on creation", counsellor.FullName()))
		s.publish(ctx, events.LeadAssigned{
			BaseEvent:        events.NewBaseEvent(),
			LeadID:           lead.ID,
			CounsellorID:     counsellor.ID,
			CounsellorUserID: counsellor.UserID,
			CounsellorEmail:  counsellor.Email,
			CounsellorName:   counsellor.FullName(),
			StudentName:      lead.FullName(),
			CourseInterested: lead.CourseInterested,
			Method:           "manual",
			Message:          fmt.Sprintf("New lead assigned: %s %s - %s", lead.FirstName, lead.LastName, lead.CourseInterested),
		})
	}
	return lead, nil
}

// Get returns the lead with its activity log, newest first.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor Actor) (transport.LeadDetailResponse, error) {
	lead, err := s.load(ctx, id, actor, opGet)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	activities, err := s.repo.ListActivities(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load activities", err).WithOp(opGet)
	}
	return transport.LeadDetailResponse{Lead: lead, Activities: activities}, nil
}

// List pages through leads. Counsellors only ever see their own portfolio.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest, actor Actor) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPage
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	params := repository.ListParams{
		Search:     strings.TrimSpace(req.Search),
		Unassigned: req.Unassigned,
		Offset:     (req.Page - 1) * req.PageSize,
		Limit:      req.PageSize,
	}
	if req.Status != "" {
		status, err := domain.ParseLeadStatus(req.Status)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation(err.Error()).WithOp(opList)
		}
		params.Status = &status
	}
	if req.CounsellorID != "" {
		id, err := uuid.Parse(req.CounsellorID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid counsellor id").WithOp(opList)
		}
		params.CounsellorID = &id
	}
	if !actor.IsAdmin() {
		c, err := s.counsellorFor(ctx, actor, opList)
		if err != nil {
			return transport.LeadListResponse{}, err
		}
		params.CounsellorID = &c.ID
		params.Unassigned = false
	}

	leads, total, err := s.repo.ListLeads(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list leads", err).WithOp(opList)
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	return transport.LeadListResponse{
		Items:      leads,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: (total + req.PageSize - 1) / req.PageSize,
	}, nil
}

// UpdateStatus moves the lead to any known status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateStatusRequest, actor Actor) (domain.Lead, error) {
	status, err := domain.ParseLeadStatus(req.Status)
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindValidation, err.Error(), err).WithOp(opUpdate)
	}
	lead, err := s.load(ctx, id, actor, opUpdate)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Status = status
	return s.save(ctx, lead, opUpdate)
}

// AddActivity logs an interaction and stamps the lead's last contact date.
func (s *Service) AddActivity(ctx context.Context, id uuid.UUID, req transport.AddActivityRequest, actor Actor) (domain.LeadActivity, error) {
	kind, err := domain.ParseActivityType(req.ActivityType)
	if err != nil {
		return domain.LeadActivity{}, apperr.Validation(err.Error()).WithOp(opActivity)
	}
	lead, err := s.load(ctx, id, actor, opActivity)
	if err != nil {
		return domain.LeadActivity{}, err
	}

	activity, err := s.repo.AddActivity(ctx, domain.LeadActivity{
		LeadID:       lead.ID,
		CounsellorID: lead.AssignedCounsellorID,
		Type:         kind,
		Description:  sanitize.Text(req.Description),
		ScheduledAt:  req.ScheduledAt,
		CompletedAt:  req.CompletedAt,
	})
	if err != nil {
		return domain.LeadActivity{}, apperr.Wrap(apperr.KindInternal, "failed to add activity", err).WithOp(opActivity)
	}

	now := s.now()
	lead.LastContactDate = &now
	if _, err := s.save(ctx, lead, opActivity); err != nil {
		return activity, err
	}
	return activity, nil
}

// ScheduleFollowUp sets the next follow-up and logs a FOLLOW_UP activity.
func (s *Service) ScheduleFollowUp(ctx context.Context, id uuid.UUID, req transport.ScheduleFollowUpRequest, actor Actor) (domain.Lead, error) {
	if !req.FollowUpAt.After(s.now()) {
		return domain.Lead{}, apperr.Validation("follow-up must be in the future").WithOp(opFollowUp)
	}
	lead, err := s.load(ctx, id, actor, opFollowUp)
	if err != nil {
		return domain.Lead{}, err
	}

	at := req.FollowUpAt
	lead.NextFollowUp = &at
	saved, err := s.save(ctx, lead, opFollowUp)
	if err != nil {
		return domain.Lead{}, err
	}

	desc := "Follow-up scheduled for " + at.Format("2006-01-02 15:04")
	if notes := sanitize.Text(req.Notes); notes != "" {
		desc += ": " + notes
	}
	_, err = s.repo.AddActivity(ctx, domain.LeadActivity{
		LeadID:       saved.ID,
		CounsellorID: saved.AssignedCounsellorID,
		Type:         domain.ActivityFollowUp,
		Description:  desc,
		ScheduledAt:  &at,
	})
	if err != nil {
		s.log.Error("failed to record follow-up activity", "error", err, "leadId", saved.ID)
	}
	return saved, nil
}

// MarkLost closes the lead and appends the reason to its notes.
func (s *Service) MarkLost(ctx context.Context, id uuid.UUID, req transport.MarkLostRequest, actor Actor) (domain.Lead, error) {
	lead, err := s.load(ctx, id, actor, opMarkLost)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.StatusClosedLost
	lead.Notes = domain.AppendNote(lead.Notes, "Lost Reason: "+sanitize.Text(req.Reason))
	return s.save(ctx, lead, opMarkLost)
}

// Transfer hands the lead to another active counsellor. Admin only.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, req transport.TransferLeadRequest) (domain.Transfer, error) {
	lead, err := s.load(ctx, id, Actor{Roles: []string{RoleAdmin}}, opTransfer)
	if err != nil {
		return domain.Transfer{}, err
	}
	if lead.AssignedCounsellorID != nil && *lead.AssignedCounsellorID == req.ToCounsellorID {
		return domain.Transfer{}, apperr.Conflict("lead is already assigned to this counsellor").WithOp(opTransfer)
	}
	to, err := s.activeCounsellor(ctx, req.ToCounsellorID, opTransfer)
	if err != nil {
		return domain.Transfer{}, err
	}

	from := lead.AssignedCounsellorID
	reason := sanitize.Text(req.Reason)
	lead.AssignTo(to.ID)
	lead.Status = domain.StatusTransferred

	transfer, err := s.repo.TransferLead(ctx, lead, domain.Transfer{
		LeadID:           lead.ID,
		FromCounsellorID: from,
		ToCounsellorID:   to.ID,
		Reason:           reason,
		Status:           transferState,
	})
	if err != nil {
		return domain.Transfer{}, apperr.Wrap(apperr.KindInternal, "failed to transfer lead", err).WithOp(opTransfer)
	}

	s.addActivity(ctx, lead.ID, &to.ID, domain.ActivityTransferred,
		fmt.Sprintf("Lead transferred to %s: %s", to.FullName(), reason))
	s.publish(ctx, events.LeadTransferred{
		BaseEvent:          events.NewBaseEvent(),
		LeadID:             lead.ID,
		FromCounsellorID:   from,
		ToCounsellorID:     to.ID,
		ToCounsellorUserID: to.UserID,
		ToCounsellorEmail:  to.Email,
		StudentName:        lead.FullName(),
		Reason:             reason,
	})
	return transfer, nil
}

// Convert records a won deal and closes the lead as CLOSED_WON with its
// actual value set to the deal value.
func (s *Service) Convert(ctx context.Context, id uuid.UUID, req transport.ConvertLeadRequest, actor Actor) (domain.Business, error) {
	status := domain.BusinessPending
	if req.Status != "" {
		status = domain.BusinessStatus(strings.ToUpper(req.Status))
	}
	lead, err := s.load(ctx, id, actor, opConvert)
	if err != nil {
		return domain.Business{}, err
	}
	if !lead.IsAssigned() {
		return domain.Business{}, apperr.Conflict("lead has no counsellor to credit").WithOp(opConvert)
	}

	value := req.Value
	lead.Status = domain.StatusClosedWon
	lead.ActualValue = &value

	business, err := s.repo.ConvertLead(ctx, lead, domain.Business{
		LeadID:       lead.ID,
		CounsellorID: *lead.AssignedCounsellorID,
		Title:        strings.TrimSpace(req.Title),
		Value:        value,
		Status:       status,
	})
	if err != nil {
		return domain.Business{}, apperr.Wrap(apperr.KindInternal, "failed to convert lead", err).WithOp(opConvert)
	}
	return business, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, actor Actor, op string) (domain.Lead, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(op)
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err).WithOp(op)
	}
	if actor.IsAdmin() {
		return lead, nil
	}

	c, err := s.counsellorFor(ctx, actor, op)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.AssignedCounsellorID == nil || *lead.AssignedCounsellorID != c.ID {
		// Same answer as a missing lead so IDs cannot be probed.
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(op)
	}
	return lead, nil
}

func (s *Service) counsellorFor(ctx context.Context, actor Actor, op string) (domain.Counsellor, error) {
	c, err := s.repo.GetCounsellorByUserID(ctx, actor.UserID)
	if errors.Is(err, repository.ErrCounsellorNotFound) {
		return domain.Counsellor{}, apperr.Forbidden("no counsellor profile for this user").WithOp(op)
	}
	if err != nil {
		return domain.Counsellor{}, apperr.Wrap(apperr.KindInternal, "failed to load counsellor", err).WithOp(op)
	}
	return c, nil
}

func (s *Service) activeCounsellor(ctx context.Context, id uuid.UUID, op string) (domain.Counsellor, error) {
	c, err := s.repo.GetCounsellor(ctx, id)
	if errors.Is(err, repository.ErrCounsellorNotFound) {
		return domain.Counsellor{}, apperr.Validation("counsellor not found").WithOp(op)
	}
	if err != nil {
		return domain.Counsellor{}, apperr.Wrap(apperr.KindInternal, "failed to load counsellor", err).WithOp(op)
	}
	if !c.IsActive {
		return domain.Counsellor{}, apperr.Validation("counsellor is not active").WithOp(op)
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, lead domain.Lead, op string) (domain.Lead, error) {
	saved, err := s.repo.SaveLead(ctx, lead)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(op)
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to save lead", err).WithOp(op)
	}
	return saved, nil
}

func (s *Service) addActivity(ctx context.Context, leadID uuid.UUID, counsellorID *uuid.UUID, kind domain.ActivityType, desc string) {
	_, err := s.repo.AddActivity(ctx, domain.LeadActivity{
		LeadID:       leadID,
		CounsellorID: counsellorID,
		Type:         kind,
		Description:  desc,
	})
	if err != nil {
		s.log.Error("failed to record activity", "error", err, "leadId", leadID, "type", kind)
	}
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, evt)
	}
}
