package transport

import (
	"time"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	FirstName            string     `json:"firstName" validate:"required,min=1,max=100"`
	LastName             string     `json:"lastName" validate:"required,min=1,max=100"`
	Email                string     `json:"email" validate:"required,email,max=254"`
	Phone                string     `json:"phone" validate:"required,min=5,max=20"`
	SchoolName           string     `json:"schoolName,omitempty" validate:"max=200"`
	GraduationStatus     string     `json:"graduationStatus,omitempty" validate:"omitempty,oneof=YES NO"`
	GraduationCourse     string     `json:"graduationCourse,omitempty" validate:"max=200"`
	GraduationYear       *int       `json:"graduationYear,omitempty" validate:"omitempty,min=1950,max=2100"`
	GraduationCollege    string     `json:"graduationCollege,omitempty" validate:"max=200"`
	CourseInterested     string     `json:"courseInterested" validate:"required,min=1,max=200"`
	Industry             string     `json:"industry,omitempty" validate:"max=100"`
	SourceID             *uuid.UUID `json:"sourceId,omitempty"`
	ExpectedValue        float64    `json:"expectedValue" validate:"min=0"`
	Priority             string     `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Notes                string     `json:"notes,omitempty" validate:"max=5000"`
	AssignedCounsellorID *uuid.UUID `json:"assignedCounsellorId,omitempty"`
}

type ListLeadsRequest struct {
	Status       string `form:"status" validate:"omitempty,max=20"`
	CounsellorID string `form:"counsellorId" validate:"omitempty,uuid"`
	Unassigned   bool   `form:"unassigned"`
	Search       string `form:"search" validate:"max=100"`
	Page         int    `form:"page" validate:"omitempty,min=1"`
	PageSize     int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,max=20"`
}

type AddActivityRequest struct {
	ActivityType string     `json:"activityType" validate:"required,oneof=CALL EMAIL MEETING NOTE FOLLOW_UP"`
	Description  string     `json:"description" validate:"required,min=1,max=2000"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

type ScheduleFollowUpRequest struct {
	FollowUpAt time.Time `json:"followUpAt" validate:"required"`
	Notes      string    `json:"notes,omitempty" validate:"max=1000"`
}

type MarkLostRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=1000"`
}

type TransferLeadRequest struct {
	ToCounsellorID uuid.UUID `json:"toCounsellorId" validate:"required"`
	Reason         string    `json:"reason" validate:"required,min=1,max=1000"`
}

type ConvertLeadRequest struct {
	Title  string  `json:"title" validate:"required,min=1,max=200"`
	Value  float64 `json:"value" validate:"gt=0"`
	Status string  `json:"status,omitempty" validate:"omitempty,oneof=PENDING ACTIVE COMPLETED CANCELLED"`
}

type AssignBatchRequest struct {
	Method string `json:"method,omitempty" validate:"omitempty,oneof=round_robin workload_balanced performance_based specialization_based"`
}

type ManualRouteRequest struct {
	Route  string `json:"route" validate:"required,oneof=undergraduate_counselor graduate_counselor specialized_department senior_counselor"`
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

// ImportLeadsRequest holds the non-file fields of the multipart upload.
type ImportLeadsRequest struct {
	AutoAssign bool   `form:"autoAssign"`
	Method     string `form:"method" validate:"omitempty,oneof=round_robin workload_balanced performance_based specialization_based"`
	SourceID   string `form:"sourceId" validate:"omitempty,uuid"`
	// AssignTo assigns every imported row to one counsellor and overrides AutoAssign.
	AssignTo string `form:"assignTo" validate:"omitempty,uuid"`
}

// Response DTOs
type LeadListResponse struct {
	Items      []domain.Lead `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

type LeadDetailResponse struct {
	Lead       domain.Lead           `json:"lead"`
	Activities []domain.LeadActivity `json:"activities"`
}

type AssignmentItem struct {
	LeadID         uuid.UUID `json:"leadId"`
	CounsellorID   uuid.UUID `json:"counsellorId"`
	CounsellorName string    `json:"counsellorName"`
}

type AssignmentResultResponse struct {
	Method      string           `json:"method"`
	Assigned    int              `json:"assigned"`
	Failed      int              `json:"failed"`
	Assignments []AssignmentItem `json:"assignments"`
}

type CounsellorWorkload struct {
	CounsellorID   uuid.UUID `json:"counsellorId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Department     string    `json:"department"`
	TotalLeads     int       `json:"totalLeads"`
	OpenLeads      int       `json:"openLeads"`
	WonLeads       int       `json:"wonLeads"`
	LostLeads      int       `json:"lostLeads"`
	ConversionRate float64   `json:"conversionRate"`
	Capacity       string    `json:"capacity"`
}

type WorkloadSummary struct {
	UnassignedLeads      int     `json:"unassignedLeads"`
	ActiveCounsellors    int     `json:"activeCounsellors"`
	AveragePerCounsellor float64 `json:"averagePerCounsellor"`
	OldestUnassignedDays int     `json:"oldestUnassignedDays"`
}

type WorkloadResponse struct {
	Counsellors []CounsellorWorkload `json:"counsellors"`
	Summary     WorkloadSummary      `json:"summary"`
}

type MonthlyTrend struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type DashboardResponse struct {
	TotalLeads     int            `json:"totalLeads"`
	Unassigned     int            `json:"unassigned"`
	ByStatus       map[string]int `json:"byStatus"`
	ConversionRate float64        `json:"conversionRate"`
	Trend          []MonthlyTrend `json:"trend"`
}

type TaskEnqueuedResponse struct {
	TaskID string `json:"taskId"`
	Queue  string `json:"queue"`
}
