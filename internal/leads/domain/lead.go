// Package domain holds the admissions entities and the rules that do not
// depend on storage: status and priority vocabularies, routing destinations,
// and the append-only note discipline.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus           = errors.New("invalid lead status")
	ErrInvalidPriority         = errors.New("invalid lead priority")
	ErrInvalidGraduationStatus = errors.New("invalid graduation status")
	ErrInvalidRoute            = errors.New("invalid routing destination")
	ErrScoreOutOfRange         = errors.New("conversion score must be between 0 and 100")
)

// Placeholders written by bulk import for missing academic fields.
const (
	NotApplicable = "Not Applicable"
	NotSpecified  = "Not Specified"
)

type LeadStatus string

const (
	StatusNew          LeadStatus = "NEW"
	StatusContacted    LeadStatus = "CONTACTED"
	StatusQualified    LeadStatus = "QUALIFIED"
	StatusProposalSent LeadStatus = "PROPOSAL_SENT"
	StatusNegotiation  LeadStatus = "NEGOTIATION"
	StatusClosedWon    LeadStatus = "CLOSED_WON"
	StatusClosedLost   LeadStatus = "CLOSED_LOST"
	StatusTransferred  LeadStatus = "TRANSFERRED"
	StatusConverted    LeadStatus = "CONVERTED"
)

// LeadStatuses lists every status in pipeline order.
var LeadStatuses = []LeadStatus{
	StatusNew, StatusContacted, StatusQualified, StatusProposalSent, StatusNegotiation,
	StatusClosedWon, StatusClosedLost, StatusTransferred, StatusConverted,
}

// OpenStatuses are the statuses counted as a counsellor's active workload.
var OpenStatuses = []LeadStatus{StatusNew, StatusContacted, StatusQualified}

func ParseLeadStatus(raw string) (LeadStatus, error) {
	candidate := LeadStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range LeadStatuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// IsTerminal reports whether the lead has been closed either way.
func (s LeadStatus) IsTerminal() bool {
	return s == StatusClosedWon || s == StatusClosedLost
}

func (s LeadStatus) IsOpen() bool {
	for _, o := range OpenStatuses {
		if s == o {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(raw))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
}

type GraduationStatus string

const (
	GraduationYes GraduationStatus = "YES"
	GraduationNo  GraduationStatus = "NO"
)

// ParseGraduationStatus accepts YES/NO in any case plus Y/N. Blank means NO.
func ParseGraduationStatus(raw string) (GraduationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "YES", "Y":
		return GraduationYes, nil
	case "NO", "N", "":
		return GraduationNo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGraduationStatus, raw)
}

// Lead is a prospective student.
type Lead struct {
	ID                   uuid.UUID        `json:"id"`
	FirstName            string           `json:"firstName"`
	LastName             string           `json:"lastName"`
	Email                string           `json:"email"`
	Phone                string           `json:"phone"`
	SchoolName           string           `json:"schoolName"`
	GraduationStatus     GraduationStatus `json:"graduationStatus"`
	GraduationCourse     string           `json:"graduationCourse"`
	GraduationYear       *int             `json:"graduationYear,omitempty"`
	GraduationCollege    string           `json:"graduationCollege"`
	CourseInterested     string           `json:"courseInterested"`
	Industry             string           `json:"industry"`
	SourceID             *uuid.UUID       `json:"sourceId,omitempty"`
	Status               LeadStatus       `json:"status"`
	Priority             Priority         `json:"priority"`
	ExpectedValue        float64          `json:"expectedValue"`
	ActualValue          *float64         `json:"actualValue,omitempty"`
	Notes                string           `json:"notes"`
	ConversionScore      *int             `json:"conversionScore,omitempty"`
	AcademicProfile      string           `json:"academicProfile"`
	EnrichmentNotes      string           `json:"enrichmentNotes"`
	RoutedTo             Route            `json:"routedTo,omitempty"`
	RoutingReason        string           `json:"routingReason"`
	AssignedCounsellorID *uuid.UUID       `json:"assignedCounsellorId,omitempty"`
	PreviousCounsellorID *uuid.UUID       `json:"previousCounsellorId,omitempty"`
	NextFollowUp         *time.Time       `json:"nextFollowUp,omitempty"`
	LastContactDate      *time.Time       `json:"lastContactDate,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

func (l Lead) IsAssigned() bool {
	return l.AssignedCounsellorID != nil && *l.AssignedCounsellorID != uuid.Nil
}

// SetConversionScore stores score after checking the [0,100] invariant.
func (l *Lead) SetConversionScore(score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("%w: %d", ErrScoreOutOfRange, score)
	}
	l.ConversionScore = &score
	return nil
}

// AssignTo swaps the current counsellor, keeping the prior one for audit.
// Assigning a lead to its current counsellor changes nothing.
func (l *Lead) AssignTo(counsellorID uuid.UUID) {
	if l.AssignedCounsellorID != nil && *l.AssignedCounsellorID == counsellorID {
		return
	}
	if l.AssignedCounsellorID != nil {
		prev := *l.AssignedCounsellorID
		l.PreviousCounsellorID = &prev
	}
	id := counsellorID
	l.AssignedCounsellorID = &id
}

// AppendNote adds note to existing notes, separated by a blank line. Notes
// are never rewritten.
func AppendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "\n\n" + note
}
