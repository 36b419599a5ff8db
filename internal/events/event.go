// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"admissions_crm/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Assignment Events
// =============================================================================

// LeadAssigned is published once per lead handed to a counsellor, whether by
// a distribution batch, AI assignment or manual reassignment.
type LeadAssigned struct {
	BaseEvent
	LeadID           uuid.UUID `json:"leadId"`
	CounsellorID     uuid.UUID `json:"counsellorId"`
	CounsellorUserID uuid.UUID `json:"counsellorUserId"`
	CounsellorEmail  string    `json:"counsellorEmail"`
	CounsellorName   string    `json:"counsellorName"`
	StudentName      string    `json:"studentName"`
	CourseInterested string    `json:"courseInterested"`
	Method           string    `json:"method"`
	// Message is the in-app text shown to the counsellor.
	Message string `json:"message"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadTransferred is published when an administrator moves a lead between
// counsellors.
type LeadTransferred struct {
	BaseEvent
	LeadID             uuid.UUID  `json:"leadId"`
	FromCounsellorID   *uuid.UUID `json:"fromCounsellorId,omitempty"`
	ToCounsellorID     uuid.UUID  `json:"toCounsellorId"`
	ToCounsellorUserID uuid.UUID  `json:"toCounsellorUserId"`
	ToCounsellorEmail  string     `json:"toCounsellorEmail"`
	StudentName        string     `json:"studentName"`
	Reason             string     `json:"reason"`
}

func (e LeadTransferred) EventName() string { return "leads.lead.transferred" }

// =============================================================================
// Routing Events
// =============================================================================

// LeadRouted is published after the routing workflow commits its result.
// AdminUserID is nil when the lead had no counsellor before routing.
type LeadRouted struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	Route        string     `json:"route"`
	Reason       string     `json:"reason"`
	Score        int        `json:"score"`
	AdminUserID  *uuid.UUID `json:"adminUserId,omitempty"`
	AdminMessage string     `json:"adminMessage"`
	Manual       bool       `json:"manual"`
}

func (e LeadRouted) EventName() string { return "leads.lead.routed" }

// =============================================================================
// Import Events
// =============================================================================

// LeadsImported is published after a bulk import commits.
type LeadsImported struct {
	BaseEvent
	Imported  int    `json:"imported"`
	Skipped   int    `json:"skipped"`
	Assigned  int    `json:"assigned"`
	ObjectKey string `json:"objectKey,omitempty"`
}

func (e LeadsImported) EventName() string { return "leads.import.completed" }
