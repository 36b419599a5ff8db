// Package routing runs the enrich, score and route pipeline over a lead and
// applies the chosen destination's status, priority and notifications.
package routing

import (
	"fmt"
	"strings"

	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/oracle"
)

const DefaultEnrichmentNote = "Academic profile enriched based on educational background and interests."

var (
	baseScores = map[domain.LeadStatus]int{
		domain.StatusNew:          25,
		domain.StatusContacted:    40,
		domain.StatusQualified:    55,
		domain.StatusProposalSent: 70,
		domain.StatusNegotiation:  80,
		domain.StatusClosedWon:    95,
		domain.StatusClosedLost:   5,
		domain.StatusTransferred:  35,
	}
	priorityAdjustments = map[domain.Priority]int{
		domain.PriorityLow:    -5,
		domain.PriorityMedium: 0,
		domain.PriorityHigh:   5,
		domain.PriorityUrgent: 10,
	}

	graduateKeywords    = []string{"mba", "masters", "phd", "postgraduate", "pg"}
	specializedGraduate = []string{"engineering", "medicine", "law", "architecture"}
	specializedSchool   = []string{"engineering", "medicine", "law"}
)

const defaultBaseScore = 35

// FallbackEnrichment describes the lead from its own academic fields.
func FallbackEnrichment(lead domain.Lead) oracle.Enrichment {
	var profile string
	if lead.GraduationStatus == domain.GraduationYes {
		profile = fmt.Sprintf("Graduate in %s from %s", orDefault(lead.GraduationCourse, "General"), orDefault(lead.GraduationCollege, "College"))
	} else {
		profile = fmt.Sprintf("12th Pass from %s", orDefault(lead.SchoolName, "School"))
	}
	return oracle.Enrichment{AcademicProfile: profile, Notes: DefaultEnrichmentNote}
}

// FallbackScore estimates admission likelihood from status, priority and
// academic completeness. The result is always within [0, 100].
func FallbackScore(status domain.LeadStatus, priority domain.Priority, grad domain.GraduationStatus, course, school string) int {
	score, ok := baseScores[status]
	if !ok {
		score = defaultBaseScore
	}
	score += priorityAdjustments[priority]
	if grad == domain.GraduationYes {
		score += 10
	}
	if strings.TrimSpace(course) != "" {
		score += 5
	}
	if strings.TrimSpace(school) != "" {
		score += 5
	}
	return min(100, max(0, score))
}

// FallbackRoute picks a destination from graduation status, course keywords
// and score. Keywords match anywhere in the lowercased course.
func FallbackRoute(grad domain.GraduationStatus, course string, score int) domain.Route {
	course = strings.ToLower(course)
	if grad == domain.GraduationYes {
		switch {
		case containsAny(course, graduateKeywords):
			return domain.RouteGraduate
		case containsAny(course, specializedGraduate):
			return domain.RouteSpecialized
		default:
			return domain.RouteGraduate
		}
	}

	switch {
	case score >= 75 || containsAny(course, specializedSchool):
		return domain.RouteSpecialized
	case score >= 60:
		return domain.RouteSenior
	default:
		return domain.RouteUndergraduate
	}
}

// DefaultReason explains a decision that came without one.
func DefaultReason(route domain.Route, score int, course string, grad domain.GraduationStatus) string {
	return fmt.Sprintf("Assigned to %s based on admission score %d, course interest '%s', and graduation status '%s'.",
		route.Label(), score, course, grad)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
