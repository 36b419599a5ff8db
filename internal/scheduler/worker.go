package scheduler

import (
	"context"
	"fmt"

	"admissions_crm/internal/leads/aiassign"
	"admissions_crm/internal/leads/assignment"
	"admissions_crm/internal/leads/imports"
	"admissions_crm/internal/leads/routing"
	"admissions_crm/platform/apperr"
	"admissions_crm/platform/config"
	"admissions_crm/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

type BatchAssigner interface {
	AssignUnassigned(ctx context.Context, method assignment.Method) (assignment.Result, error)
}

type AIAssigner interface {
	AssignAll(ctx context.Context) (aiassign.BulkResult, error)
}

type LeadRouter interface {
	Run(ctx context.Context, leadID uuid.UUID, opts routing.Options) (routing.Pipeline, error)
}

type ObjectImporter interface {
	ImportObject(ctx context.Context, key string, opts imports.Options) (imports.Result, error)
}

// Jobs are the services the worker dispatches tasks to.
type Jobs struct {
	Assigner   BatchAssigner
	AIAssigner AIAssigner
	Router     LeadRouter
	Importer   ObjectImporter
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	jobs   Jobs
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs Jobs, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	w := newWorker(jobs, log)
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})
	return w, nil
}

func newWorker(jobs Jobs, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	w := &Worker{mux: asynq.NewServeMux(), jobs: jobs, log: log}
	w.mux.HandleFunc(TaskAssignBatch, w.handleAssignBatch)
	w.mux.HandleFunc(TaskAIAssignBatch, w.handleAIAssignBatch)
	w.mux.HandleFunc(TaskRouteLead, w.handleRouteLead)
	w.mux.HandleFunc(TaskImportLeads, w.handleImportLeads)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleAssignBatch(ctx context.Context, task *asynq.Task) error {
	if w.jobs.Assigner == nil {
		return skip(fmt.Errorf("batch assignment not configured"))
	}
	payload, err := ParseAssignBatchPayload(task)
	if err != nil {
		return skip(err)
	}

	method := assignment.ParseMethod(payload.Method)
	result, err := w.jobs.Assigner.AssignUnassigned(ctx, method)
	if err != nil {
		return classify(err)
	}
	w.log.Info("assignment batch task finished", "method", method, "assigned", result.Assigned, "failed", result.Failed)
	return nil
}

func (w *Worker) handleAIAssignBatch(ctx context.Context, _ *asynq.Task) error {
	if w.jobs.AIAssigner == nil {
		return skip(fmt.Errorf("ai assignment not configured"))
	}
	result, err := w.jobs.AIAssigner.AssignAll(ctx)
	if err != nil {
		return classify(err)
	}
	w.log.Info("ai assignment task finished", "assigned", result.Assigned, "failed", result.Failed)
	return nil
}

func (w *Worker) handleRouteLead(ctx context.Context, task *asynq.Task) error {
	if w.jobs.Router == nil {
		return skip(fmt.Errorf("routing not configured"))
	}
	payload, err := ParseRouteLeadPayload(task)
	if err != nil {
		return skip(err)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return skip(err)
	}

	pipeline, err := w.jobs.Router.Run(ctx, leadID, routing.Options{})
	if err != nil {
		return classify(err)
	}
	w.log.Info("routing task finished", "leadId", leadID, "route", pipeline.Decision.Route, "score", pipeline.Score)
	return nil
}

func (w *Worker) handleImportLeads(ctx context.Context, task *asynq.Task) error {
	if w.jobs.Importer == nil {
		return skip(fmt.Errorf("lead import not configured"))
	}
	payload, err := ParseImportLeadsPayload(task)
	if err != nil {
		return skip(err)
	}
	opts, err := importOptions(payload)
	if err != nil {
		return skip(err)
	}

	result, err := w.jobs.Importer.ImportObject(ctx, payload.ObjectKey, opts)
	if err != nil {
		return classify(err)
	}
	w.log.Info("lead import task finished",
		"objectKey", payload.ObjectKey,
		"imported", result.Imported,
		"failed", result.Failed,
		"assigned", result.Assigned,
	)
	return nil
}

func importOptions(p ImportLeadsPayload) (imports.Options, error) {
	opts := imports.Options{
		FileName:   p.FileName,
		AutoAssign: p.AutoAssign,
		Method:     assignment.ParseMethod(p.Method),
	}
	var err error
	if opts.SourceID, err = optionalUUID(p.SourceID); err != nil {
		return imports.Options{}, fmt.Errorf("sourceId: %w", err)
	}
	if opts.AssignTo, err = optionalUUID(p.AssignTo); err != nil {
		return imports.Options{}, fmt.Errorf("assignTo: %w", err)
	}
	return opts, nil
}

func optionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func skip(err error) error {
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

// classify stops retries for errors that a retry cannot fix.
func classify(err error) error {
	switch apperr.GetKind(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindConflict, apperr.KindBadRequest, apperr.KindForbidden:
		return skip(err)
	}
	return err
}
