package aiassign

import (
	"errors"
	"math"
	"testing"

	"admissions_crm/internal/leads/domain"

	"github.com/google/uuid"
)

func ownedBy(c domain.Counsellor, leads ...domain.Lead) []domain.Lead {
	for i := range leads {
		id := c.ID
		leads[i].ID = uuid.New()
		leads[i].AssignedCounsellorID = &id
	}
	return leads
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreFactors(t *testing.T) {
	c := domain.Counsellor{ID: uuid.New()}
	history := ownedBy(c,
		domain.Lead{Status: domain.StatusConverted, GraduationStatus: domain.GraduationNo},
		domain.Lead{Status: domain.StatusConverted, GraduationStatus: domain.GraduationNo},
		domain.Lead{Status: domain.StatusNew, GraduationStatus: domain.GraduationNo},
		domain.Lead{Status: domain.StatusQualified, GraduationStatus: domain.GraduationNo},
	)
	lead := domain.Lead{GraduationStatus: domain.GraduationYes}

	b := Score(lead, history)
	if b.Workload != 2 {
		t.Errorf("Workload = %d, want 2", b.Workload)
	}
	if !approx(b.PerformancePct, 50) {
		t.Errorf("PerformancePct = %v, want 50", b.PerformancePct)
	}
	if b.Specialization != 0 {
		t.Errorf("Specialization = %d, want 0", b.Specialization)
	}
	// 0.4*(10-2) + 0.3*(50/10) + 0.3*0
	if !approx(b.Final, 4.7) {
		t.Errorf("Final = %v, want 4.7", b.Final)
	}
}

func TestScoreEmptyHistory(t *testing.T) {
	b := Score(domain.Lead{GraduationStatus: domain.GraduationNo}, nil)
	if b.Workload != 0 || b.PerformancePct != 0 || b.Specialization != 0 || !approx(b.Final, 4) {
		t.Errorf("Score(empty) = %+v, want workload factor only", b)
	}
}

func TestScoreWorkloadFloorsAtZero(t *testing.T) {
	c := domain.Counsellor{ID: uuid.New()}
	history := make([]domain.Lead, 14)
	for i := range history {
		history[i] = domain.Lead{Status: domain.StatusContacted, GraduationStatus: domain.GraduationNo}
	}
	b := Score(domain.Lead{GraduationStatus: domain.GraduationYes}, ownedBy(c, history...))
	if b.Workload != 14 || !approx(b.Final, 0) {
		t.Errorf("Score() = %+v, want zero final score", b)
	}
}

func TestSpecialization(t *testing.T) {
	lead := domain.Lead{
		GraduationStatus: domain.GraduationYes,
		CourseInterested: "Engineering Design",
		SchoolName:       "Kendriya Vidyalaya",
		GraduationCourse: "BSc Physics",
	}
	history := []domain.Lead{
		{GraduationStatus: domain.GraduationYes, CourseInterested: "engineering", SchoolName: "Kendriya School", GraduationCourse: "BSc Chemistry"},
		{GraduationStatus: domain.GraduationNo, CourseInterested: "Arts", SchoolName: "DPS", GraduationCourse: domain.NotApplicable},
	}

	// graduation 1x2 + course 1x3 + special field 2 + school 1x1 + graduation course 1x2
	if got := Specialization(lead, history); got != 10 {
		t.Errorf("Specialization() = %d, want 10", got)
	}
}

func TestSpecializationSkipsNotApplicableCourse(t *testing.T) {
	lead := domain.Lead{GraduationStatus: domain.GraduationNo, GraduationCourse: domain.NotApplicable}
	history := []domain.Lead{{GraduationStatus: domain.GraduationYes, GraduationCourse: domain.NotApplicable}}

	if got := Specialization(lead, history); got != 0 {
		t.Errorf("Specialization() = %d, want 0", got)
	}
}

func TestSpecializationIsCappedInFinal(t *testing.T) {
	lead := domain.Lead{GraduationStatus: domain.GraduationNo, CourseInterested: "MBA"}
	history := make([]domain.Lead, 5)
	for i := range history {
		history[i] = domain.Lead{Status: domain.StatusClosedLost, GraduationStatus: domain.GraduationNo, CourseInterested: "mba finance"}
	}

	b := Score(lead, history)
	// 5x2 + 5x3 + 2 = 27, capped at 10 for the final score.
	if b.Specialization != 27 {
		t.Errorf("Specialization = %d, want 27", b.Specialization)
	}
	if !approx(b.Final, 0.4*10+0.3*10) {
		t.Errorf("Final = %v, want 7", b.Final)
	}
}

func TestSelectBestPrefersIdleCounsellor(t *testing.T) {
	busy := domain.Counsellor{ID: uuid.New(), FirstName: "Busy"}
	idle := domain.Counsellor{ID: uuid.New(), FirstName: "Idle"}

	history := make([]domain.Lead, 8)
	for i := range history {
		history[i] = domain.Lead{Status: domain.StatusNew, GraduationStatus: domain.GraduationNo}
	}
	grouped := GroupByCounsellor(ownedBy(busy, history...))

	got, b, err := SelectBest(domain.Lead{GraduationStatus: domain.GraduationYes}, []domain.Counsellor{busy, idle}, grouped)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.ID != idle.ID {
		t.Errorf("SelectBest() = %s, want Idle", got.FirstName)
	}
	if b.Workload != 0 {
		t.Errorf("Workload = %d, want 0", b.Workload)
	}
}

func TestSelectBestTieGoesToFirst(t *testing.T) {
	a := domain.Counsellor{ID: uuid.New(), FirstName: "A"}
	b := domain.Counsellor{ID: uuid.New(), FirstName: "B"}

	got, _, err := SelectBest(domain.Lead{}, []domain.Counsellor{a, b}, nil)
	if err != nil || got.ID != a.ID {
		t.Errorf("SelectBest() = %s, %v, want A", got.FirstName, err)
	}
}

func TestSelectBestWithoutCounsellors(t *testing.T) {
	if _, _, err := SelectBest(domain.Lead{}, nil, nil); !errors.Is(err, ErrNoCounsellors) {
		t.Errorf("SelectBest() error = %v, want ErrNoCounsellors", err)
	}
}

func TestReason(t *testing.T) {
	c := domain.Counsellor{FirstName: "Jane", LastName: "Doe"}
	b := Breakdown{Workload: 3, PerformancePct: 25, Specialization: 14, Final: 5.7}

	want := "AI Academic Assignment: Selected Jane Doe based on workload (3 active students), " +
		"performance (25.0% enrollment rate), and academic specialization match (score: 14). Final AI score: 5.70"
	if got := Reason(b, c); got != want {
		t.Errorf("Reason() =\n%q\nwant\n%q", got, want)
	}
}
