package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParseLeadStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    LeadStatus
		wantErr bool
	}{
		{"NEW", StatusNew, false},
		{" proposal_sent ", StatusProposalSent, false},
		{"converted", StatusConverted, false},
		{"ARCHIVED", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseLeadStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLeadStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ParseLeadStatus(%q) error = %v, want ErrInvalidStatus", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLeadStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range LeadStatuses {
		wantTerminal := s == StatusClosedWon || s == StatusClosedLost
		if s.IsTerminal() != wantTerminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), wantTerminal)
		}
		wantOpen := s == StatusNew || s == StatusContacted || s == StatusQualified
		if s.IsOpen() != wantOpen {
			t.Errorf("%s.IsOpen() = %v, want %v", s, s.IsOpen(), wantOpen)
		}
	}
}

func TestParseGraduationStatus(t *testing.T) {
	tests := map[string]GraduationStatus{
		"YES": GraduationYes,
		"yes": GraduationYes,
		"Y":   GraduationYes,
		"no":  GraduationNo,
		"":    GraduationNo,
	}
	for in, want := range tests {
		got, err := ParseGraduationStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseGraduationStatus(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseGraduationStatus("maybe"); err == nil {
		t.Error("ParseGraduationStatus(maybe) error = nil")
	}
}

func TestAppendNote(t *testing.T) {
	tests := []struct {
		existing, note, want string
	}{
		{"", "first", "first"},
		{"  ", "first", "first"},
		{"first", "second", "first\n\nsecond"},
		{"first", "   ", "first"},
	}
	for _, tt := range tests {
		if got := AppendNote(tt.existing, tt.note); got != tt.want {
			t.Errorf("AppendNote(%q, %q) = %q, want %q", tt.existing, tt.note, got, tt.want)
		}
	}
}

func TestAssignToKeepsPrevious(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	var lead Lead

	lead.AssignTo(first)
	if lead.PreviousCounsellorID != nil {
		t.Fatalf("PreviousCounsellorID = %v after first assignment, want nil", lead.PreviousCounsellorID)
	}

	lead.AssignTo(second)
	if *lead.AssignedCounsellorID != second || *lead.PreviousCounsellorID != first {
		t.Errorf("after reassignment assigned=%v previous=%v", *lead.AssignedCounsellorID, *lead.PreviousCounsellorID)
	}

	lead.AssignTo(second)
	if *lead.PreviousCounsellorID != first {
		t.Errorf("reassigning to the same counsellor overwrote previous: %v", *lead.PreviousCounsellorID)
	}
}

func TestSetConversionScore(t *testing.T) {
	var lead Lead
	for _, score := range []int{0, 55, 100} {
		if err := lead.SetConversionScore(score); err != nil || *lead.ConversionScore != score {
			t.Errorf("SetConversionScore(%d) = %v", score, err)
		}
	}
	for _, score := range []int{-1, 101} {
		if err := lead.SetConversionScore(score); !errors.Is(err, ErrScoreOutOfRange) {
			t.Errorf("SetConversionScore(%d) error = %v, want ErrScoreOutOfRange", score, err)
		}
	}
}

func TestRouteLabels(t *testing.T) {
	if got := RouteSpecialized.Label(); got != "specialized department" {
		t.Errorf("Label() = %q", got)
	}
	if got := RouteUndergraduate.Title(); got != "Undergraduate Counselor" {
		t.Errorf("Title() = %q", got)
	}
	if _, err := ParseRoute("Senior_Counselor"); err != nil {
		t.Errorf("ParseRoute(Senior_Counselor) error = %v", err)
	}
	if _, err := ParseRoute("dean"); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("ParseRoute(dean) error = %v, want ErrInvalidRoute", err)
	}
}
