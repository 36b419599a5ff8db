package oracle

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"admissions_crm/internal/leads/domain"
)

// ErrUnparseable means the model answered but not in the expected shape.
var ErrUnparseable = errors.New("oracle response could not be parsed")

const maxAcademicProfile = 150

var (
	academicProfilePattern = regexp.MustCompile(`(?i)academic_profile"?\s*[:="]\s*"?([^\n"]+)`)
	enrichmentNotesPattern = regexp.MustCompile(`(?i)enrichment_notes"?\s*[:="]\s*([^\n]+)`)
	scorePattern           = regexp.MustCompile(`\b(100|\d{1,2})\b`)
	routePattern           = regexp.MustCompile(`route\s*=\s*(undergraduate_counselor|graduate_counselor|specialized_department|senior_counselor)`)
	reasonPattern          = regexp.MustCompile(`reason\s*=\s*(.+)`)
)

// ParseEnrichment extracts academic_profile and enrichment_notes from a
// JSON-ish or key: value answer. The profile is cut to 150 characters.
func ParseEnrichment(text string) (Enrichment, error) {
	var out Enrichment
	if m := academicProfilePattern.FindStringSubmatch(text); m != nil {
		out.AcademicProfile = truncate(strings.TrimSpace(m[1]), maxAcademicProfile)
	}
	if m := enrichmentNotesPattern.FindStringSubmatch(text); m != nil {
		out.Notes = strings.Trim(strings.TrimSpace(m[1]), `",} `)
	}
	if out.AcademicProfile == "" && out.Notes == "" {
		return Enrichment{}, ErrUnparseable
	}
	return out, nil
}

// ParseScore returns the first standalone integer between 0 and 100.
func ParseScore(text string) (int, error) {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrUnparseable
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, ErrUnparseable
	}
	return score, nil
}

// ParseRoute reads route=<option> and reason=<text> lines. Matching is done
// on the lowercased answer, so the reason comes back lowercased.
func ParseRoute(text string) (Decision, error) {
	lower := strings.ToLower(text)
	m := routePattern.FindStringSubmatch(lower)
	if m == nil {
		return Decision{}, ErrUnparseable
	}
	d := Decision{Route: domain.Route(m[1])}
	if r := reasonPattern.FindStringSubmatch(lower); r != nil {
		d.Reason = strings.TrimSpace(r[1])
	}
	return d, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
