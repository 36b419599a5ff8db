// Package leads wires the admissions lead context: repository, assignment
// engines, the routing workflow, bulk import and their HTTP surface.
package leads

import (
	"admissions_crm/internal/events"
	apphttp "admissions_crm/internal/http"
	"admissions_crm/internal/leads/aiassign"
	"admissions_crm/internal/leads/assignment"
	"admissions_crm/internal/leads/handler"
	"admissions_crm/internal/leads/imports"
	"admissions_crm/internal/leads/management"
	"admissions_crm/internal/leads/oracle"
	"admissions_crm/internal/leads/repository"
	"admissions_crm/internal/leads/routing"
	"admissions_crm/internal/scheduler"
	"admissions_crm/platform/ai/openai"
	"admissions_crm/platform/config"
	"admissions_crm/platform/logger"
	"admissions_crm/platform/storage"
	"admissions_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the shared dependencies of the module. Locker, Store and Tasks
// are optional.
type Deps struct {
	Pool      *pgxpool.Pool
	Bus       events.Bus
	Oracle    config.OracleConfig
	MinIO     config.MinIOConfig
	Locker    assignment.Locker
	Store     storage.ObjectStore
	Tasks     handler.TaskEnqueuer
	Validator *validator.Validator
	Log       *logger.Logger
}

type Module struct {
	handler    *handler.Handler
	management *management.Service
	assignment *assignment.Service
	aiassign   *aiassign.Service
	routing    *routing.Workflow
	imports    *imports.Service
}

func NewModule(d Deps) (*Module, error) {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	repo := repository.New(d.Pool)

	var advisor routing.Oracle
	if d.Oracle != nil && d.Oracle.IsOracleEnabled() {
		a, err := oracle.NewAdvisor(openai.NewModel(openai.Config{
			APIKey:  d.Oracle.GetOpenAIAPIKey(),
			BaseURL: d.Oracle.GetOracleBaseURL(),
			Model:   d.Oracle.GetOracleModel(),
			Timeout: d.Oracle.GetOracleTimeout(),
		}))
		if err != nil {
			return nil, err
		}
		advisor = a
	} else {
		log.Info("scoring oracle disabled, routing runs on heuristics")
	}

	var bucket string
	if d.MinIO != nil {
		bucket = d.MinIO.GetMinioBucketLeadImports()
	}

	assignSvc := assignment.NewService(repo, d.Locker, d.Bus, log)
	aiSvc := aiassign.NewService(repo, d.Locker, d.Bus, log)
	workflow := routing.NewWorkflow(repo, advisor, d.Bus, log)
	importSvc := imports.NewService(repo, assignSvc, d.Store, bucket, d.Bus, log)
	mgmtSvc := management.New(repo, d.Bus, log)

	h := handler.New(handler.Deps{
		Management: mgmtSvc,
		Assignment: assignSvc,
		AIAssign:   aiSvc,
		Routing:    workflow,
		Imports:    importSvc,
		Tasks:      d.Tasks,
		Validator:  d.Validator,
	})

	return &Module{
		handler:    h,
		management: mgmtSvc,
		assignment: assignSvc,
		aiassign:   aiSvc,
		routing:    workflow,
		imports:    importSvc,
	}, nil
}

func (m *Module) Name() string {
	return "leads"
}

// Jobs exposes the services the background worker dispatches to.
func (m *Module) Jobs() scheduler.Jobs {
	return scheduler.Jobs{
		Assigner:   m.assignment,
		AIAssigner: m.aiassign,
		Router:     m.routing,
		Importer:   m.imports,
	}
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin)
	m.handler.RegisterCounsellorRoutes(ctx.Counsellor)
}

var _ apphttp.Module = (*Module)(nil)
