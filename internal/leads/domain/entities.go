package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Counsellor is a staff member eligible to receive leads.
type Counsellor struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (c Counsellor) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type ActivityType string

const (
	ActivityCall        ActivityType = "CALL"
	ActivityEmail       ActivityType = "EMAIL"
	ActivityMeeting     ActivityType = "MEETING"
	ActivityNote        ActivityType = "NOTE"
	ActivityFollowUp    ActivityType = "FOLLOW_UP"
	ActivityRouted      ActivityType = "ROUTED"
	ActivityAssigned    ActivityType = "ASSIGNED"
	ActivityTransferred ActivityType = "TRANSFERRED"
)

func ParseActivityType(raw string) (ActivityType, error) {
	switch t := ActivityType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityFollowUp,
		ActivityRouted, ActivityAssigned, ActivityTransferred:
		return t, nil
	}
	return "", fmt.Errorf("invalid activity type %q", raw)
}

// LeadActivity is an append-only interaction log entry.
type LeadActivity struct {
	ID           uuid.UUID    `json:"id"`
	LeadID       uuid.UUID    `json:"leadId"`
	CounsellorID *uuid.UUID   `json:"counsellorId,omitempty"`
	Type         ActivityType `json:"activityType"`
	Description  string       `json:"description"`
	ScheduledAt  *time.Time   `json:"scheduledAt,omitempty"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type BusinessStatus string

const (
	BusinessPending   BusinessStatus = "PENDING"
	BusinessActive    BusinessStatus = "ACTIVE"
	BusinessCompleted BusinessStatus = "COMPLETED"
	BusinessCancelled BusinessStatus = "CANCELLED"
)

// Business is a won deal derived from a converted lead.
type Business struct {
	ID           uuid.UUID      `json:"id"`
	LeadID       uuid.UUID      `json:"leadId"`
	CounsellorID uuid.UUID      `json:"counsellorId"`
	Title        string         `json:"title"`
	Value        float64        `json:"value"`
	Status       BusinessStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Transfer records a reassignment approved by an administrator.
type Transfer struct {
	ID               uuid.UUID  `json:"id"`
	LeadID           uuid.UUID  `json:"leadId"`
	FromCounsellorID *uuid.UUID `json:"fromCounsellorId,omitempty"`
	ToCounsellorID   uuid.UUID  `json:"toCounsellorId"`
	Reason           string     `json:"reason"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type Audience string

const (
	AudienceCounsellor Audience = "COUNSELLOR"
	AudienceAdmin      Audience = "ADMIN"
)

// Notification is a message for a counsellor or an administrator.
type Notification struct {
	ID              uuid.UUID `json:"id"`
	Audience        Audience  `json:"audience"`
	RecipientUserID uuid.UUID `json:"recipientUserId"`
	Message         string    `json:"message"`
	IsRead          bool      `json:"isRead"`
	CreatedAt       time.Time `json:"createdAt"`
}
