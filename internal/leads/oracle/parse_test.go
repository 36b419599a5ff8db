package oracle

import (
	"errors"
	"strings"
	"testing"

	"admissions_crm/internal/leads/domain"
)

func TestParseEnrichment(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantProfile string
		wantNotes   string
		wantErr     bool
	}{
		{
			name: "json block",
			text: "{\n  \"academic_profile\": \"B.Tech graduate from NIT with strong maths\",\n  \"enrichment_notes\": \"Consistent academic record, interested in MBA\"\n}",
			wantProfile: "B.Tech graduate from NIT with strong maths",
			wantNotes:   "Consistent academic record, interested in MBA",
		},
		{
			name:        "key value lines",
			text:        "Academic_Profile: 12th pass, science stream\nENRICHMENT_NOTES: Needs guidance on entrance exams",
			wantProfile: "12th pass, science stream",
			wantNotes:   "Needs guidance on entrance exams",
		},
		{
			name:      "notes only",
			text:      "enrichment_notes: gap year after school",
			wantNotes: "gap year after school",
		},
		{
			name:    "prose",
			text:    "This student looks promising.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEnrichment(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparseable) {
					t.Fatalf("ParseEnrichment() error = %v, want ErrUnparseable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEnrichment() error = %v", err)
			}
			if got.AcademicProfile != tt.wantProfile {
				t.Errorf("AcademicProfile = %q, want %q", got.AcademicProfile, tt.wantProfile)
			}
			if got.Notes != tt.wantNotes {
				t.Errorf("Notes = %q, want %q", got.Notes, tt.wantNotes)
			}
		})
	}
}

func TestParseEnrichmentTruncatesProfile(t *testing.T) {
	long := strings.Repeat("a", 200)
	got, err := ParseEnrichment("academic_profile: " + long)
	if err != nil {
		t.Fatalf("ParseEnrichment() error = %v", err)
	}
	if len(got.AcademicProfile) != 150 {
		t.Errorf("len(AcademicProfile) = %d, want 150", len(got.AcademicProfile))
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		text    string
		want    int
		wantErr bool
	}{
		{"72", 72, false},
		{"Score: 100", 100, false},
		{"I would rate this 0 out of 100", 0, false},
		{"Likelihood is 85%.", 85, false},
		{"150", 0, true},
		{"no idea", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseScore(tt.text)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScore(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScore(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestParseRoute(t *testing.T) {
	got, err := ParseRoute("Route=Graduate_Counselor\nReason=Holds a BSc and wants an MBA")
	if err != nil {
		t.Fatalf("ParseRoute() error = %v", err)
	}
	if got.Route != domain.RouteGraduate {
		t.Errorf("Route = %q, want %q", got.Route, domain.RouteGraduate)
	}
	if got.Reason != "holds a bsc and wants an mba" {
		t.Errorf("Reason = %q", got.Reason)
	}

	got, err = ParseRoute("route = senior_counselor")
	if err != nil || got.Route != domain.RouteSenior || got.Reason != "" {
		t.Errorf("ParseRoute(no reason) = %+v, %v", got, err)
	}

	if _, err := ParseRoute("route=dean_office\nreason=x"); !errors.Is(err, ErrUnparseable) {
		t.Errorf("ParseRoute(unknown) error = %v, want ErrUnparseable", err)
	}
}
