// Package assignment distributes unassigned leads across active counsellors
// using one of four interchangeable policies.
package assignment

import (
	"context"
	"errors"
	"slices"
	"strings"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

var ErrNoActiveCounsellors = errors.New("no active counsellors available for assignment")

type Method string

const (
	RoundRobin          Method = "round_robin"
	WorkloadBalanced    Method = "workload_balanced"
	PerformanceBased    Method = "performance_based"
	SpecializationBased Method = "specialization_based"
)

// ParseMethod maps raw to a Method. Unknown or empty input means RoundRobin.
func ParseMethod(raw string) Method {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case RoundRobin, WorkloadBalanced, PerformanceBased, SpecializationBased:
		return m
	}
	return RoundRobin
}

// Label renders "workload_balanced" as "Workload Balanced".
func (m Method) Label() string {
	words := strings.Split(string(m), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Assignment pairs a lead with the counsellor chosen for it.
type Assignment struct {
	Lead       domain.Lead
	Counsellor domain.Counsellor
}

type Result struct {
	Assigned    int
	Failed      int
	Assignments []Assignment
}

// Store is what the engine needs from persistence.
type Store interface {
	// ListLeadsByCounsellors returns every lead currently owned by any of ids.
	ListLeadsByCounsellors(ctx context.Context, ids []uuid.UUID) ([]domain.Lead, error)
	AssignLead(ctx context.Context, leadID, counsellorID uuid.UUID) error
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Assign plans the whole batch against a counter table built once from the
// counsellors' current portfolios, then persists each pairing. A lead whose
// write fails is counted in Failed and skipped; the batch continues.
func (e *Engine) Assign(ctx context.Context, leads []domain.Lead, counsellors []domain.Counsellor, method Method) (Result, error) {
	if len(counsellors) == 0 {
		return Result{}, ErrNoActiveCounsellors
	}
	if len(leads) == 0 {
		return Result{Assignments: []Assignment{}}, nil
	}

	ids := make([]uuid.UUID, len(counsellors))
	for i, c := range counsellors {
		ids[i] = c.ID
	}
	portfolio, err := e.store.ListLeadsByCounsellors(ctx, ids)
	if err != nil {
		return Result{}, err
	}

	planned := plan(leads, counsellors, newCounters(counsellors, portfolio), method)

	result := Result{Assignments: make([]Assignment, 0, len(planned))}
	for _, a := range planned {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.store.AssignLead(ctx, a.Lead.ID, a.Counsellor.ID); err != nil {
			result.Failed++
			continue
		}
		a.Lead.AssignTo(a.Counsellor.ID)
		result.Assigned++
		result.Assignments = append(result.Assignments, a)
	}
	return result, nil
}

// plan pairs every lead with a counsellor without touching storage. It
// mutates the running counts in c as it goes, so later leads in the batch
// see the load added by earlier ones.
func plan(leads []domain.Lead, counsellors []domain.Counsellor, c counters, method Method) []Assignment {
	if len(counsellors) == 0 {
		return nil
	}
	switch method {
	case WorkloadBalanced:
		return planWorkloadBalanced(leads, counsellors, c)
	case PerformanceBased:
		return planPerformanceBased(leads, counsellors, c)
	case SpecializationBased:
		return planSpecializationBased(leads, counsellors, c)
	default:
		return planRoundRobin(leads, counsellors)
	}
}

func planRoundRobin(leads []domain.Lead, counsellors []domain.Counsellor) []Assignment {
	out := make([]Assignment, len(leads))
	for i, lead := range leads {
		out[i] = Assignment{Lead: lead, Counsellor: counsellors[i%len(counsellors)]}
	}
	return out
}

type slot struct {
	counsellor domain.Counsellor
	tally      *tally
}

func slotsFor(counsellors []domain.Counsellor, c counters) []slot {
	slots := make([]slot, len(counsellors))
	for i, co := range counsellors {
		slots[i] = slot{counsellor: co, tally: c.get(co.ID)}
	}
	return slots
}

func planWorkloadBalanced(leads []domain.Lead, counsellors []domain.Counsellor, c counters) []Assignment {
	byLoad := func(a, b slot) int { return a.tally.total - b.tally.total }

	slots := slotsFor(counsellors, c)
	slices.SortStableFunc(slots, byLoad)

	out := make([]Assignment, len(leads))
	for i, lead := range leads {
		head := slots[0]
		out[i] = Assignment{Lead: lead, Counsellor: head.counsellor}
		head.tally.total++
		slices.SortStableFunc(slots, byLoad)
	}
	return out
}

// planPerformanceBased ranks by conversion rate descending, then by lead
// count ascending. The rate is fixed for the batch; only the count moves.
func planPerformanceBased(leads []domain.Lead, counsellors []domain.Counsellor, c counters) []Assignment {
	slots := slotsFor(counsellors, c)
	rates := make(map[uuid.UUID]float64, len(slots))
	for _, s := range slots {
		rates[s.counsellor.ID] = s.tally.conversionRate()
	}
	byPerformance := func(a, b slot) int {
		ra, rb := rates[a.counsellor.ID], rates[b.counsellor.ID]
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		}
		return a.tally.total - b.tally.total
	}

	slices.SortStableFunc(slots, byPerformance)

	out := make([]Assignment, len(leads))
	for i, lead := range leads {
		head := slots[0]
		out[i] = Assignment{Lead: lead, Counsellor: head.counsellor}
		head.tally.total++
		slices.SortStableFunc(slots, byPerformance)
	}
	return out
}

// planSpecializationBased scores each counsellor per lead as
// industryRate*100 + sourceRate*50 - 2*workload. The first counsellor is the
// starting best, so every lead is placed even when all scores are negative.
func planSpecializationBased(leads []domain.Lead, counsellors []domain.Counsellor, c counters) []Assignment {
	out := make([]Assignment, len(leads))
	for i, lead := range leads {
		best := counsellors[0]
		bestScore := specializationScore(lead, c.get(best.ID))
		for _, co := range counsellors[1:] {
			if score := specializationScore(lead, c.get(co.ID)); score > bestScore {
				best, bestScore = co, score
			}
		}
		out[i] = Assignment{Lead: lead, Counsellor: best}
		c.get(best.ID).total++
	}
	return out
}

// specializationScore is the affinity of one counsellor's history for lead.
func specializationScore(lead domain.Lead, t *tally) float64 {
	score := 0.0
	if key := specializationKey(lead); key != "" {
		if h, ok := t.byIndustry[key]; ok {
			score += h.rate() * 100
		}
	}
	if lead.SourceID != nil {
		if h, ok := t.bySource[*lead.SourceID]; ok {
			score += h.rate() * 50
		}
	}
	return score - float64(2*t.total)
}
