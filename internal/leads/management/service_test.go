package management

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/internal/leads/transport"
	"admissions_crm/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads       map[uuid.UUID]domain.Lead
	counsellors map[uuid.UUID]domain.Counsellor
	activities  []domain.LeadActivity
	created     repository.CreateLeadParams
	businesses  []domain.Business
	transfers   []domain.Transfer

	byStatus   map[domain.LeadStatus]int
	unassigned []domain.Lead
	monthly    []repository.MonthlyCount
	workloads  []repository.WorkloadRow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: map[uuid.UUID]domain.Lead{}, counsellors: map[uuid.UUID]domain.Counsellor{}}
}

func (r *fakeRepo) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	l, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return l, nil
}

func (r *fakeRepo) ListLeads(_ context.Context, p repository.ListParams) ([]domain.Lead, int, error) {
	var out []domain.Lead
	for _, l := range r.leads {
		if p.CounsellorID != nil && (l.AssignedCounsellorID == nil || *l.AssignedCounsellorID != *p.CounsellorID) {
			continue
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

func (r *fakeRepo) ListUnassignedLeads(context.Context) ([]domain.Lead, error) {
	return r.unassigned, nil
}

func (r *fakeRepo) CreateLead(_ context.Context, p repository.CreateLeadParams) (domain.Lead, error) {
	r.created = p
	l := domain.Lead{
		ID: uuid.New(), FirstName: p.FirstName, LastName: p.LastName, Phone: p.Phone,
		CourseInterested: p.CourseInterested, Status: domain.StatusNew, Priority: p.Priority,
		Notes: p.Notes, AssignedCounsellorID: p.AssignedTo,
	}
	r.leads[l.ID] = l
	return l, nil
}

func (r *fakeRepo) SaveLead(_ context.Context, l domain.Lead) (domain.Lead, error) {
	if _, ok := r.leads[l.ID]; !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	r.leads[l.ID] = l
	return l, nil
}

func (r *fakeRepo) GetCounsellor(_ context.Context, id uuid.UUID) (domain.Counsellor, error) {
	c, ok := r.counsellors[id]
	if !ok {
		return domain.Counsellor{}, repository.ErrCounsellorNotFound
	}
	return c, nil
}

func (r *fakeRepo) GetCounsellorByUserID(_ context.Context, userID uuid.UUID) (domain.Counsellor, error) {
	for _, c := range r.counsellors {
		if c.UserID == userID {
			return c, nil
		}
	}
	return domain.Counsellor{}, repository.ErrCounsellorNotFound
}

func (r *fakeRepo) ListActiveCounsellors(context.Context) ([]domain.Counsellor, error) {
	var out []domain.Counsellor
	for _, c := range r.counsellors {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListLeadsByCounsellors(context.Context, []uuid.UUID) ([]domain.Lead, error) {
	return nil, nil
}

func (r *fakeRepo) AddActivity(_ context.Context, a domain.LeadActivity) (domain.LeadActivity, error) {
	r.activities = append(r.activities, a)
	return a, nil
}

func (r *fakeRepo) ListActivities(_ context.Context, leadID uuid.UUID) ([]domain.LeadActivity, error) {
	var out []domain.LeadActivity
	for _, a := range r.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ConvertLead(_ context.Context, l domain.Lead, b domain.Business) (domain.Business, error) {
	r.leads[l.ID] = l
	b.ID = uuid.New()
	r.businesses = append(r.businesses, b)
	return b, nil
}

func (r *fakeRepo) TransferLead(_ context.Context, l domain.Lead, t domain.Transfer) (domain.Transfer, error) {
	r.leads[l.ID] = l
	t.ID = uuid.New()
	r.transfers = append(r.transfers, t)
	return t, nil
}

func (r *fakeRepo) CountByStatus(context.Context, *uuid.UUID) (map[domain.LeadStatus]int, error) {
	return r.byStatus, nil
}

func (r *fakeRepo) CountUnassigned(context.Context) (int, error) {
	return len(r.unassigned), nil
}

func (r *fakeRepo) MonthlyLeadCounts(context.Context, time.Time) ([]repository.MonthlyCount, error) {
	return r.monthly, nil
}

func (r *fakeRepo) CounsellorWorkloads(context.Context) ([]repository.WorkloadRow, error) {
	return r.workloads, nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

var (
	fixedNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	admin    = Actor{UserID: uuid.New(), Roles: []string{RoleAdmin}}
)

func newService(repo *fakeRepo, bus events.Bus) *Service {
	s := New(repo, bus, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func addCounsellor(repo *fakeRepo, active bool) domain.Counsellor {
	c := domain.Counsellor{ID: uuid.New(), UserID: uuid.New(), FirstName: "Asha", LastName: "Rao", Email: "asha@example.edu", IsActive: active}
	repo.counsellors[c.ID] = c
	return c
}

func addLead(repo *fakeRepo, owner *uuid.UUID) domain.Lead {
	l := domain.Lead{
		ID: uuid.New(), FirstName: "Dev", LastName: "Patel", CourseInterested: "BBA",
		Status: domain.StatusNew, Priority: domain.PriorityMedium, AssignedCounsellorID: owner,
	}
	repo.leads[l.ID] = l
	return l
}

func TestCreate(t *testing.T) {
	repo := newFakeRepo()
	req := transport.CreateLeadRequest{
		FirstName: " Dev ", LastName: "Patel", Email: "Dev@Example.com", Phone: "12345",
		CourseInterested: "BBA", Notes: "<b>Called</b> back",
	}

	lead, err := newService(repo, nil).Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if lead.Status != domain.StatusNew || lead.Priority != domain.PriorityMedium {
		t.Errorf("status/priority = %s/%s, want NEW/MEDIUM", lead.Status, lead.Priority)
	}
	if repo.created.FirstName != "Dev" || repo.created.Email != "dev@example.com" {
		t.Errorf("name/email not normalised: %q %q", repo.created.FirstName, repo.created.Email)
	}
	if repo.created.Notes != "Called back" {
		t.Errorf("Notes = %q, want sanitised text", repo.created.Notes)
	}
	if repo.created.GraduationStatus != domain.GraduationNo {
		t.Errorf("GraduationStatus = %q, want NO", repo.created.GraduationStatus)
	}
}

func TestCreateWithCounsellorPublishes(t *testing.T) {
	repo := newFakeRepo()
	c := addCounsellor(repo, true)
	bus := &recordingBus{}

	_, err := newService(repo, bus).Create(context.Background(), transport.CreateLeadRequest{
		FirstName: "Dev", LastName: "Patel", Email: "dev@example.com", Phone: "12345",
		CourseInterested: "BBA", AssignedCounsellorID: &c.ID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(bus.published) != 1 || len(repo.activities) != 1 {
		t.Fatalf("published=%d activities=%d, want 1 each", len(bus.published), len(repo.activities))
	}
	if evt := bus.published[0].(events.LeadAssigned); evt.CounsellorUserID != c.UserID {
		t.Errorf("CounsellorUserID = %v, want %v", evt.CounsellorUserID, c.UserID)
	}
}

func TestCreateRejectsInactiveCounsellor(t *testing.T) {
	repo := newFakeRepo()
	c := addCounsellor(repo, false)
	_, err := newService(repo, nil).Create(context.Background(), transport.CreateLeadRequest{
		FirstName: "Dev", CourseInterested: "BBA", AssignedCounsellorID: &c.ID,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Create() error = %v, want validation", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	lead := addLead(repo, nil)
	svc := newService(repo, nil)

	if _, err := svc.UpdateStatus(context.Background(), lead.ID, transport.UpdateStatusRequest{Status: "ARCHIVED"}, admin); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("UpdateStatus(ARCHIVED) error = %v, want validation", err)
	}
	got, err := svc.UpdateStatus(context.Background(), lead.ID, transport.UpdateStatusRequest{Status: "contacted"}, admin)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if got.Status != domain.StatusContacted {
		t.Errorf("Status = %s, want CONTACTED", got.Status)
	}
}

func TestCounsellorScoping(t *testing.T) {
	repo := newFakeRepo()
	mine := addCounsellor(repo, true)
	other := addCounsellor(repo, true)
	own := addLead(repo, &mine.ID)
	foreign := addLead(repo, &other.ID)
	svc := newService(repo, nil)
	actor := Actor{UserID: mine.UserID, Roles: []string{"counsellor"}}

	if _, err := svc.Get(context.Background(), own.ID, actor); err != nil {
		t.Errorf("Get(own) error = %v", err)
	}
	if _, err := svc.Get(context.Background(), foreign.ID, actor); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get(foreign) error = %v, want not found", err)
	}
	if _, err := svc.Get(context.Background(), own.ID, Actor{UserID: uuid.New()}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Get(no profile) error = %v, want forbidden", err)
	}

	list, err := svc.List(context.Background(), transport.ListLeadsRequest{Unassigned: true}, actor)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Total != 1 || list.Items[0].ID != own.ID {
		t.Errorf("List() = %d items, want only the counsellor's lead", list.Total)
	}
	if list.PageSize != defaultPage || list.Page != 1 {
		t.Errorf("paging = %d/%d, want 1/%d", list.Page, list.PageSize, defaultPage)
	}
}

func TestAddActivityStampsLastContact(t *testing.T) {
	repo := newFakeRepo()
	lead := addLead(repo, nil)

	activity, err := newService(repo, nil).AddActivity(context.Background(), lead.ID, transport.AddActivityRequest{
		ActivityType: "call", Description: "Discussed <i>fees</i>",
	}, admin)
	if err != nil {
		t.Fatalf("AddActivity() error = %v", err)
	}
	if activity.Type != domain.ActivityCall || activity.Description != "Discussed fees" {
		t.Errorf("activity = %s %q", activity.Type, activity.Description)
	}
	if got := repo.leads[lead.ID].LastContactDate; got == nil || !got.Equal(fixedNow) {
		t.Errorf("LastContactDate = %v, want %v", got, fixedNow)
	}
}

func TestScheduleFollowUp(t *testing.T) {
	repo := newFakeRepo()
	lead := addLead(repo, nil)
	svc := newService(repo, nil)

	past := transport.ScheduleFollowUpRequest{FollowUpAt: fixedNow.Add(-time.Hour)}
	if _, err := svc.ScheduleFollowUp(context.Background(), lead.ID, past, admin); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("ScheduleFollowUp(past) error = %v, want validation", err)
	}

	at := fixedNow.Add(48 * time.Hour)
	got, err := svc.ScheduleFollowUp(context.Background(), lead.ID, transport.ScheduleFollowUpRequest{FollowUpAt: at, Notes: "bring marksheet"}, admin)
	if err != nil {
		t.Fatalf("ScheduleFollowUp() error = %v", err)
	}
	if got.NextFollowUp == nil || !got.NextFollowUp.Equal(at) {
		t.Errorf("NextFollowUp = %v, want %v", got.NextFollowUp, at)
	}
	if len(repo.activities) != 1 || repo.activities[0].Type != domain.ActivityFollowUp {
		t.Fatalf("activities = %+v", repo.activities)
	}
	if want := "Follow-up scheduled for 2026-03-17 10:00: bring marksheet"; repo.activities[0].Description != want {
		t.Errorf("Description = %q, want %q", repo.activities[0].Description, want)
	}
}

func TestMarkLost(t *testing.T) {
	repo := newFakeRepo()
	lead := addLead(repo, nil)
	lead.Notes = "Interested in hostel"
	repo.leads[lead.ID] = lead

	got, err := newService(repo, nil).MarkLost(context.Background(), lead.ID, transport.MarkLostRequest{Reason: "Chose another college"}, admin)
	if err != nil {
		t.Fatalf("MarkLost() error = %v", err)
	}
	if got.Status != domain.StatusClosedLost {
		t.Errorf("Status = %s, want CLOSED_LOST", got.Status)
	}
	if want := "Interested in hostel\n\nLost Reason: Chose another college"; got.Notes != want {
		t.Errorf("Notes = %q, want %q", got.Notes, want)
	}
}

func TestTransfer(t *testing.T) {
	repo := newFakeRepo()
	from := addCounsellor(repo, true)
	to := addCounsellor(repo, true)
	lead := addLead(repo, &from.ID)
	bus := &recordingBus{}
	svc := newService(repo, bus)

	if _, err := svc.Transfer(context.Background(), lead.ID, transport.TransferLeadRequest{ToCounsellorID: from.ID, Reason: "x"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("Transfer(same) error = %v, want conflict", err)
	}

	transfer, err := svc.Transfer(context.Background(), lead.ID, transport.TransferLeadRequest{ToCounsellorID: to.ID, Reason: "Language preference"})
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if transfer.FromCounsellorID == nil || *transfer.FromCounsellorID != from.ID || transfer.Status != "APPROVED" {
		t.Errorf("transfer = %+v", transfer)
	}
	saved := repo.leads[lead.ID]
	if saved.Status != domain.StatusTransferred || *saved.AssignedCounsellorID != to.ID || *saved.PreviousCounsellorID != from.ID {
		t.Errorf("lead = %s assigned=%v previous=%v", saved.Status, saved.AssignedCounsellorID, saved.PreviousCounsellorID)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published = %d, want 1", len(bus.published))
	}
	if evt := bus.published[0].(events.LeadTransferred); evt.ToCounsellorUserID != to.UserID {
		t.Errorf("ToCounsellorUserID = %v, want %v", evt.ToCounsellorUserID, to.UserID)
	}
}

func TestConvert(t *testing.T) {
	repo := newFakeRepo()
	c := addCounsellor(repo, true)
	lead := addLead(repo, &c.ID)
	unowned := addLead(repo, nil)
	svc := newService(repo, nil)

	if _, err := svc.Convert(context.Background(), unowned.ID, transport.ConvertLeadRequest{Title: "BBA 2026", Value: 1}, admin); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("Convert(unassigned) error = %v, want conflict", err)
	}

	b, err := svc.Convert(context.Background(), lead.ID, transport.ConvertLeadRequest{Title: "BBA 2026", Value: 120000}, admin)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if b.Status != domain.BusinessPending || b.CounsellorID != c.ID {
		t.Errorf("business = %+v", b)
	}
	saved := repo.leads[lead.ID]
	if saved.Status != domain.StatusClosedWon || saved.ActualValue == nil || *saved.ActualValue != 120000 {
		t.Errorf("lead = %s actual=%v", saved.Status, saved.ActualValue)
	}
}

func TestCapacityLabel(t *testing.T) {
	tests := map[int]string{0: "LOW", 10: "LOW", 11: "MEDIUM", 25: "MEDIUM", 26: "HIGH"}
	for total, want := range tests {
		if got := CapacityLabel(total); got != want {
			t.Errorf("CapacityLabel(%d) = %s, want %s", total, got, want)
		}
	}
}

func TestCounsellorWorkload(t *testing.T) {
	repo := newFakeRepo()
	a, b := addCounsellor(repo, true), addCounsellor(repo, true)
	repo.workloads = []repository.WorkloadRow{
		{Counsellor: a, Total: 12, Open: 5, Won: 3, Lost: 1},
		{Counsellor: b, Total: 3, Open: 3},
	}
	repo.unassigned = []domain.Lead{
		{ID: uuid.New(), CreatedAt: fixedNow.Add(-75 * time.Hour)},
		{ID: uuid.New(), CreatedAt: fixedNow.Add(-time.Hour)},
	}

	got, err := newService(repo, nil).CounsellorWorkload(context.Background())
	if err != nil {
		t.Fatalf("CounsellorWorkload() error = %v", err)
	}
	want := transport.WorkloadSummary{UnassignedLeads: 2, ActiveCounsellors: 2, AveragePerCounsellor: 7.5, OldestUnassignedDays: 3}
	if got.Summary != want {
		t.Errorf("Summary = %+v, want %+v", got.Summary, want)
	}
	if got.Counsellors[0].Capacity != "MEDIUM" || got.Counsellors[0].ConversionRate != 25 {
		t.Errorf("first row = %+v", got.Counsellors[0])
	}
}

func TestDashboard(t *testing.T) {
	repo := newFakeRepo()
	repo.byStatus = map[domain.LeadStatus]int{domain.StatusNew: 5, domain.StatusClosedWon: 2, domain.StatusClosedLost: 1}
	repo.unassigned = make([]domain.Lead, 4)
	repo.monthly = []repository.MonthlyCount{
		{Month: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Count: 6},
		{Month: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Count: 2},
	}

	got, err := newService(repo, nil).Dashboard(context.Background(), nil)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if got.TotalLeads != 8 || got.Unassigned != 4 || got.ConversionRate != 25 {
		t.Errorf("totals = %d/%d/%.1f", got.TotalLeads, got.Unassigned, got.ConversionRate)
	}
	if got.ByStatus["NEGOTIATION"] != 0 || got.ByStatus["NEW"] != 5 {
		t.Errorf("ByStatus = %v", got.ByStatus)
	}
	var months []string
	for _, p := range got.Trend {
		months = append(months, p.Month)
	}
	if want := "2025-10,2025-11,2025-12,2026-01,2026-02,2026-03"; strings.Join(months, ",") != want {
		t.Errorf("trend months = %v, want %s", months, want)
	}
	if got.Trend[3].Count != 6 || got.Trend[5].Count != 2 || got.Trend[4].Count != 0 {
		t.Errorf("trend = %+v", got.Trend)
	}

	scoped, err := newService(repo, nil).Dashboard(context.Background(), &uuid.UUID{})
	if err != nil {
		t.Fatalf("Dashboard(scoped) error = %v", err)
	}
	if scoped.Trend != nil || scoped.Unassigned != 0 {
		t.Errorf("scoped dashboard leaked global data: %+v", scoped)
	}
}

func TestDashboardForCounsellorWithoutProfile(t *testing.T) {
	repo := newFakeRepo()
	_, err := newService(repo, nil).DashboardFor(context.Background(), Actor{UserID: uuid.New(), Roles: []string{"counsellor"}})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("DashboardFor() error = %v, want forbidden", err)
	}
}
