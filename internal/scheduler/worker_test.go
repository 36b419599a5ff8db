package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"admissions_crm/internal/leads/aiassign"
	"admissions_crm/internal/leads/assignment"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/imports"
	"admissions_crm/internal/leads/oracle"
	"admissions_crm/internal/leads/routing"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeAssigner struct {
	method assignment.Method
	calls  int
	err    error
}

func (f *fakeAssigner) AssignUnassigned(_ context.Context, method assignment.Method) (assignment.Result, error) {
	f.calls++
	f.method = method
	return assignment.Result{Assigned: 3}, f.err
}

type fakeAIAssigner struct{ calls int }

func (f *fakeAIAssigner) AssignAll(context.Context) (aiassign.BulkResult, error) {
	f.calls++
	return aiassign.BulkResult{Assigned: 2}, nil
}

type fakeRouter struct {
	leadID uuid.UUID
	err    error
}

func (f *fakeRouter) Run(_ context.Context, leadID uuid.UUID, _ routing.Options) (routing.Pipeline, error) {
	f.leadID = leadID
	return routing.Pipeline{Score: 60, Decision: oracle.Decision{Route: domain.RouteGraduate}}, f.err
}

type fakeImporter struct {
	key  string
	opts imports.Options
}

func (f *fakeImporter) ImportObject(_ context.Context, key string, opts imports.Options) (imports.Result, error) {
	f.key, f.opts = key, opts
	return imports.Result{Imported: 4}, nil
}

func TestWorkerDispatchesAssignBatch(t *testing.T) {
	assigner := &fakeAssigner{}
	w := newWorker(Jobs{Assigner: assigner}, nil)

	task, err := NewAssignBatchTask(AssignBatchPayload{Method: "performance_based"})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask() error = %v", err)
	}
	if assigner.calls != 1 || assigner.method != assignment.PerformanceBased {
		t.Errorf("assigner calls=%d method=%s", assigner.calls, assigner.method)
	}
}

func TestWorkerSkipsRetryOnConflict(t *testing.T) {
	assigner := &fakeAssigner{err: apperr.Conflict("another assignment batch is already running")}
	w := newWorker(Jobs{Assigner: assigner}, nil)

	task, _ := NewAssignBatchTask(AssignBatchPayload{})
	err := w.mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("ProcessTask() error = %v, want SkipRetry", err)
	}
}

func TestWorkerRetriesInternalErrors(t *testing.T) {
	boom := errors.New("db down")
	w := newWorker(Jobs{Router: &fakeRouter{err: boom}}, nil)

	task, _ := NewRouteLeadTask(RouteLeadPayload{LeadID: uuid.NewString()})
	err := w.mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, boom) || errors.Is(err, asynq.SkipRetry) {
		t.Errorf("ProcessTask() error = %v, want retryable %v", err, boom)
	}
}

func TestWorkerRouteLead(t *testing.T) {
	router := &fakeRouter{}
	w := newWorker(Jobs{Router: router}, nil)
	leadID := uuid.New()

	task, _ := NewRouteLeadTask(RouteLeadPayload{LeadID: leadID.String()})
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask() error = %v", err)
	}
	if router.leadID != leadID {
		t.Errorf("routed %s, want %s", router.leadID, leadID)
	}

	bad := asynq.NewTask(TaskRouteLead, []byte(`{"leadId":"nope"}`))
	if err := w.mux.ProcessTask(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("invalid lead id error = %v, want SkipRetry", err)
	}
}

func TestWorkerImportLeads(t *testing.T) {
	importer := &fakeImporter{}
	w := newWorker(Jobs{Importer: importer}, nil)
	source := uuid.NewString()

	task, _ := NewImportLeadsTask(ImportLeadsPayload{
		ObjectKey:  "lead-imports/march.csv",
		Method:     "workload_balanced",
		AutoAssign: true,
		SourceID:   &source,
	})
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask() error = %v", err)
	}
	if importer.key != "lead-imports/march.csv" || !importer.opts.AutoAssign || importer.opts.Method != assignment.WorkloadBalanced {
		t.Errorf("import key=%q opts=%+v", importer.key, importer.opts)
	}
	if importer.opts.SourceID == nil || importer.opts.SourceID.String() != source || importer.opts.AssignTo != nil {
		t.Errorf("import source/assignTo = %v/%v", importer.opts.SourceID, importer.opts.AssignTo)
	}
}

func TestWorkerAIAssignAndMissingJobs(t *testing.T) {
	ai := &fakeAIAssigner{}
	w := newWorker(Jobs{AIAssigner: ai}, nil)

	task, _ := NewAIAssignBatchTask()
	if err := w.mux.ProcessTask(context.Background(), task); err != nil || ai.calls != 1 {
		t.Fatalf("ProcessTask() error = %v calls = %d", err, ai.calls)
	}

	batch, _ := NewAssignBatchTask(AssignBatchPayload{})
	if err := w.mux.ProcessTask(context.Background(), batch); !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("unconfigured assigner error = %v, want SkipRetry", err)
	}
}

func TestAutoAssignSweep(t *testing.T) {
	if NewAutoAssignSweep(&fakeAssigner{}, "round_robin", 0, nil) != nil {
		t.Error("zero interval should disable the sweep")
	}

	assigner := &fakeAssigner{err: apperr.Conflict("busy")}
	sweep := NewAutoAssignSweep(assigner, "specialization_based", 1, nil)
	sweep.sweep(context.Background())
	if assigner.calls != 1 || assigner.method != assignment.SpecializationBased {
		t.Errorf("sweep calls=%d method=%s", assigner.calls, assigner.method)
	}
}

func TestAutoAssignSweepLogsSkipReason(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		notWant string
	}{
		{
			name:    "no counsellors",
			err:     apperr.Wrap(apperr.KindConflict, assignment.ErrNoActiveCounsellors.Error(), assignment.ErrNoActiveCounsellors),
			want:    "no active counsellors",
			notWant: "already running",
		},
		{
			name:    "lock held",
			err:     apperr.Conflict("another assignment batch is already running"),
			want:    "batch already running",
			notWant: "no active counsellors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sweep := NewAutoAssignSweep(&fakeAssigner{err: tt.err}, "round_robin", 1, logger.NewWithWriter("development", &buf))
			sweep.sweep(context.Background())

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("log = %q, want %q", out, tt.want)
			}
			if strings.Contains(out, tt.notWant) {
				t.Errorf("log = %q, should not mention %q", out, tt.notWant)
			}
		})
	}
}
