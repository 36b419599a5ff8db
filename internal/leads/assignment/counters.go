package assignment

import (
	"strings"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

type outcome struct {
	total int
	won   int
}

func (o outcome) rate() float64 {
	if o.total == 0 {
		return 0
	}
	return float64(o.won) / float64(o.total)
}

// tally is the running state for one counsellor within a batch.
type tally struct {
	total      int
	won        int
	byIndustry map[string]outcome
	bySource   map[uuid.UUID]outcome
}

// conversionRate is closed-won over total, as a percentage.
func (t *tally) conversionRate() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.won) / float64(t.total) * 100
}

// counters is the per-batch table keyed by counsellor ID. It is built once
// and mutated in place as leads are placed.
type counters map[uuid.UUID]*tally

func newCounters(counsellors []domain.Counsellor, portfolio []domain.Lead) counters {
	c := make(counters, len(counsellors))
	for _, co := range counsellors {
		c[co.ID] = &tally{byIndustry: map[string]outcome{}, bySource: map[uuid.UUID]outcome{}}
	}
	for _, lead := range portfolio {
		if lead.AssignedCounsellorID == nil {
			continue
		}
		t, ok := c[*lead.AssignedCounsellorID]
		if !ok {
			continue
		}
		won := lead.Status == domain.StatusClosedWon

		t.total++
		if won {
			t.won++
		}
		if key := specializationKey(lead); key != "" {
			t.byIndustry[key] = t.byIndustry[key].add(won)
		}
		if lead.SourceID != nil {
			t.bySource[*lead.SourceID] = t.bySource[*lead.SourceID].add(won)
		}
	}
	return c
}

func (o outcome) add(won bool) outcome {
	o.total++
	if won {
		o.won++
	}
	return o
}

// get never returns nil so policies can treat unknown IDs as empty history.
func (c counters) get(id uuid.UUID) *tally {
	t, ok := c[id]
	if !ok {
		t = &tally{byIndustry: map[string]outcome{}, bySource: map[uuid.UUID]outcome{}}
		c[id] = t
	}
	return t
}

// specializationKey is the lead's industry, or its graduation status when no
// industry was captured.
func specializationKey(lead domain.Lead) string {
	if key := strings.TrimSpace(lead.Industry); key != "" {
		return strings.ToLower(key)
	}
	return strings.ToLower(string(lead.GraduationStatus))
}
