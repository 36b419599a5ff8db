package routing

import (
	"fmt"

	"admissions_crm/internal/leads/domain"
)

// Action is what a destination does to the lead it receives.
type Action struct {
	Status     domain.LeadStatus
	Priority   domain.Priority
	NotePrefix string
	// adminFormat takes first name, last name and course.
	adminFormat string
}

var Actions = map[domain.Route]Action{
	domain.RouteUndergraduate: {
		Status:      domain.StatusQualified,
		Priority:    domain.PriorityMedium,
		NotePrefix:  "Routed to Undergraduate Counseling: ",
		adminFormat: "Student %s %s routed to Undergraduate Counseling for %s",
	},
	domain.RouteGraduate: {
		Status:      domain.StatusQualified,
		Priority:    domain.PriorityHigh,
		NotePrefix:  "Routed to Graduate Counseling: ",
		adminFormat: "Graduate student %s %s routed to Graduate Counseling for %s",
	},
	domain.RouteSpecialized: {
		Status:      domain.StatusProposalSent,
		Priority:    domain.PriorityHigh,
		NotePrefix:  "Routed to Specialized Department: ",
		adminFormat: "Student %s %s routed to Specialized Department for %s - High Priority",
	},
	domain.RouteSenior: {
		Status:      domain.StatusNegotiation,
		Priority:    domain.PriorityUrgent,
		NotePrefix:  "Routed to Senior Counselor: ",
		adminFormat: "Student %s %s routed to Senior Counselor for %s - Urgent Priority",
	},
}

// AdminMessage is the notification text for the counsellor's administrator.
func (a Action) AdminMessage(lead domain.Lead) string {
	return fmt.Sprintf(a.adminFormat, lead.FirstName, lead.LastName, lead.CourseInterested)
}

// Apply sets status and priority and appends the routing note.
func (a Action) Apply(lead *domain.Lead, reason string) {
	lead.Status = a.Status
	lead.Priority = a.Priority
	lead.Notes = domain.AppendNote(lead.Notes, a.NotePrefix+reason)
}

// ActivityDescription is the ROUTED log line.
func ActivityDescription(route domain.Route, reason string) string {
	return fmt.Sprintf("AI routed student to %s: %s", route.Title(), reason)
}
