// Package oracle asks a language model to enrich, score and route a lead.
// Every call may fail; callers treat any error as a signal to use their own
// heuristics.
package oracle

import (
	"strconv"

	"admissions_crm/internal/leads/domain"
)

// Profile is the lead as presented to the model.
type Profile struct {
	Name              string
	SchoolName        string
	GraduationStatus  string
	GraduationCourse  string
	GraduationYear    string
	GraduationCollege string
	CourseInterested  string
	Status            string
	Priority          string
	ExpectedValue     float64
	Notes             string
	// AcademicProfile and Score are filled in by earlier stages.
	AcademicProfile string
	Score           int
}

func ProfileFromLead(lead domain.Lead) Profile {
	p := Profile{
		Name:              lead.FullName(),
		SchoolName:        lead.SchoolName,
		GraduationStatus:  string(lead.GraduationStatus),
		GraduationCourse:  lead.GraduationCourse,
		GraduationCollege: lead.GraduationCollege,
		CourseInterested:  lead.CourseInterested,
		Status:            string(lead.Status),
		Priority:          string(lead.Priority),
		ExpectedValue:     lead.ExpectedValue,
		Notes:             lead.Notes,
		AcademicProfile:   lead.AcademicProfile,
	}
	if lead.GraduationYear != nil {
		p.GraduationYear = strconv.Itoa(*lead.GraduationYear)
	}
	if lead.ConversionScore != nil {
		p.Score = *lead.ConversionScore
	}
	return p
}

// Enrichment is the output of the first stage. Either field may be empty
// when the model omitted it.
type Enrichment struct {
	AcademicProfile string `json:"academicProfile"`
	Notes           string `json:"notes"`
}

// Decision is the output of the routing stage. Reason may be empty.
type Decision struct {
	Route  domain.Route `json:"route"`
	Reason string       `json:"reason"`
}
