// Package aiassign picks a counsellor for a lead by weighing open workload,
// historical enrolment rate and similarity to the counsellor's past leads.
package aiassign

import (
	"errors"
	"fmt"
	"strings"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

var ErrNoCounsellors = errors.New("no active counsellors available for assignment")

const (
	workloadWeight       = 0.4
	performanceWeight    = 0.3
	specializationWeight = 0.3

	workloadCeiling   = 10
	specializationCap = 10
	specialFieldBonus = 2
	graduationWeight  = 2
	courseWeight      = 3
	schoolWeight      = 1
	gradCourseWeight  = 2
)

var specialFields = []string{"engineering", "medicine", "law", "mba", "masters"}

// Breakdown is one counsellor's score for one lead.
type Breakdown struct {
	// Workload is the count of the counsellor's open leads.
	Workload int `json:"workload"`
	// PerformancePct is converted leads over all leads, 0-100.
	PerformancePct float64 `json:"performancePct"`
	// Specialization is the uncapped similarity score.
	Specialization int     `json:"specialization"`
	Final          float64 `json:"final"`
}

// Score evaluates a counsellor for lead given the counsellor's current leads.
func Score(lead domain.Lead, history []domain.Lead) Breakdown {
	b := Breakdown{Specialization: Specialization(lead, history)}

	converted := 0
	for _, h := range history {
		if h.Status.IsOpen() {
			b.Workload++
		}
		if h.Status == domain.StatusConverted {
			converted++
		}
	}
	if len(history) > 0 {
		b.PerformancePct = float64(converted) / float64(len(history)) * 100
	}

	workloadFactor := float64(max(0, workloadCeiling-b.Workload))
	performanceFactor := b.PerformancePct / 10
	specializationFactor := float64(min(b.Specialization, specializationCap))

	b.Final = workloadWeight*workloadFactor + performanceWeight*performanceFactor + specializationWeight*specializationFactor
	return b
}

// Specialization counts how much of history resembles lead. Text fields are
// compared on their first word, case-insensitively, as a substring of the
// prior lead's field.
func Specialization(lead domain.Lead, history []domain.Lead) int {
	score := 0
	for _, h := range history {
		if h.GraduationStatus == lead.GraduationStatus {
			score += graduationWeight
		}
	}

	if token := firstWord(lead.CourseInterested); token != "" {
		score += courseWeight * countContaining(history, token, func(l domain.Lead) string { return l.CourseInterested })

		course := strings.ToLower(lead.CourseInterested)
		for _, field := range specialFields {
			if strings.Contains(course, field) {
				score += specialFieldBonus
				break
			}
		}
	}

	if token := firstWord(lead.SchoolName); token != "" {
		score += schoolWeight * countContaining(history, token, func(l domain.Lead) string { return l.SchoolName })
	}

	if lead.GraduationCourse != domain.NotApplicable {
		if token := firstWord(lead.GraduationCourse); token != "" {
			score += gradCourseWeight * countContaining(history, token, func(l domain.Lead) string { return l.GraduationCourse })
		}
	}
	return score
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func countContaining(history []domain.Lead, token string, field func(domain.Lead) string) int {
	n := 0
	for _, h := range history {
		if strings.Contains(strings.ToLower(field(h)), token) {
			n++
		}
	}
	return n
}

// SelectBest scores every counsellor and returns the highest. The earliest
// counsellor wins a tie.
func SelectBest(lead domain.Lead, counsellors []domain.Counsellor, history map[uuid.UUID][]domain.Lead) (domain.Counsellor, Breakdown, error) {
	if len(counsellors) == 0 {
		return domain.Counsellor{}, Breakdown{}, ErrNoCounsellors
	}

	best := counsellors[0]
	bestScore := Score(lead, history[best.ID])
	for _, c := range counsellors[1:] {
		if b := Score(lead, history[c.ID]); b.Final > bestScore.Final {
			best, bestScore = c, b
		}
	}
	return best, bestScore, nil
}

// Reason is the justification appended to the lead's notes.
func Reason(b Breakdown, c domain.Counsellor) string {
	return fmt.Sprintf(
		"AI Academic Assignment: Selected %s %s based on workload (%d active students), "+
			"performance (%.1f%% enrollment rate), and academic specialization match (score: %d). Final AI score: %.2f",
		c.FirstName, c.LastName, b.Workload, b.PerformancePct, b.Specialization, b.Final,
	)
}

// GroupByCounsellor buckets leads by their current counsellor.
func GroupByCounsellor(leads []domain.Lead) map[uuid.UUID][]domain.Lead {
	out := make(map[uuid.UUID][]domain.Lead)
	for _, l := range leads {
		if l.AssignedCounsellorID != nil {
			out[*l.AssignedCounsellorID] = append(out[*l.AssignedCounsellorID], l)
		}
	}
	return out
}
