package management

import (
	"context"
	"math"
	"time"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/internal/leads/transport"
	"admissions_crm/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const trendMonths = 6

// CapacityLabel buckets a counsellor by the number of leads they hold.
func CapacityLabel(total int) string {
	switch {
	case total <= 10:
		return "LOW"
	case total <= 25:
		return "MEDIUM"
	default:
		return "HIGH"
	}
}

// CounsellorWorkload reports every active counsellor's portfolio plus the
// queue of leads still waiting for one.
func (s *Service) CounsellorWorkload(ctx context.Context) (transport.WorkloadResponse, error) {
	var (
		rows       []repository.WorkloadRow
		unassigned []domain.Lead
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.repo.CounsellorWorkloads(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unassigned, err = s.repo.ListUnassignedLeads(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.WorkloadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load workload", err).WithOp(opWorkload)
	}

	out := transport.WorkloadResponse{Counsellors: make([]transport.CounsellorWorkload, 0, len(rows))}
	assigned := 0
	for _, r := range rows {
		assigned += r.Total
		out.Counsellors = append(out.Counsellors, transport.CounsellorWorkload{
			CounsellorID:   r.Counsellor.ID,
			Name:           r.Counsellor.FullName(),
			Email:          r.Counsellor.Email,
			Department:     r.Counsellor.Department,
			TotalLeads:     r.Total,
			OpenLeads:      r.Open,
			WonLeads:       r.Won,
			LostLeads:      r.Lost,
			ConversionRate: percentage(r.Won, r.Total),
			Capacity:       CapacityLabel(r.Total),
		})
	}

	out.Summary = transport.WorkloadSummary{
		UnassignedLeads:   len(unassigned),
		ActiveCounsellors: len(rows),
	}
	if len(rows) > 0 {
		out.Summary.AveragePerCounsellor = round1(float64(assigned) / float64(len(rows)))
	}
	if len(unassigned) > 0 {
		// ListUnassignedLeads is oldest first.
		out.Summary.OldestUnassignedDays = int(s.now().Sub(unassigned[0].CreatedAt).Hours() / 24)
	}
	return out, nil
}

// DashboardFor scopes the dashboard to the actor's own portfolio unless the
// actor is an administrator.
func (s *Service) DashboardFor(ctx context.Context, actor Actor) (transport.DashboardResponse, error) {
	if actor.IsAdmin() {
		return s.Dashboard(ctx, nil)
	}
	c, err := s.counsellorFor(ctx, actor, opDashboard)
	if err != nil {
		return transport.DashboardResponse{}, err
	}
	return s.Dashboard(ctx, &c.ID)
}

// Dashboard aggregates lead counts. A nil counsellorID covers every lead and
// includes the unassigned queue and the monthly trend.
func (s *Service) Dashboard(ctx context.Context, counsellorID *uuid.UUID) (transport.DashboardResponse, error) {
	var (
		byStatus   map[domain.LeadStatus]int
		unassigned int
		monthly    []repository.MonthlyCount
	)
	since := monthStart(s.now()).AddDate(0, -(trendMonths - 1), 0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.repo.CountByStatus(gctx, counsellorID)
		return err
	})
	if counsellorID == nil {
		g.Go(func() error {
			var err error
			unassigned, err = s.repo.CountUnassigned(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			monthly, err = s.repo.MonthlyLeadCounts(gctx, since)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return transport.DashboardResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load dashboard", err).WithOp(opDashboard)
	}

	out := transport.DashboardResponse{
		Unassigned: unassigned,
		ByStatus:   make(map[string]int, len(domain.LeadStatuses)),
	}
	for _, st := range domain.LeadStatuses {
		out.ByStatus[string(st)] = byStatus[st]
		out.TotalLeads += byStatus[st]
	}
	out.ConversionRate = percentage(byStatus[domain.StatusClosedWon], out.TotalLeads)
	if counsellorID == nil {
		out.Trend = fillTrend(since, monthly)
	}
	return out, nil
}

// fillTrend returns one point per month from since, zero-filling gaps.
func fillTrend(since time.Time, counts []repository.MonthlyCount) []transport.MonthlyTrend {
	byMonth := make(map[string]int, len(counts))
	for _, c := range counts {
		byMonth[c.Month.Format("2006-01")] += c.Count
	}
	trend := make([]transport.MonthlyTrend, 0, trendMonths)
	for i := 0; i < trendMonths; i++ {
		key := since.AddDate(0, i, 0).Format("2006-01")
		trend = append(trend, transport.MonthlyTrend{Month: key, Count: byMonth[key]})
	}
	return trend
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
