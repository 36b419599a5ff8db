package handler

import (
	"context"
	"net/http"

	"admissions_crm/internal/leads/aiassign"
	"admissions_crm/internal/leads/assignment"
	"admissions_crm/internal/leads/imports"
	"admissions_crm/internal/leads/management"
	"admissions_crm/internal/leads/routing"
	"admissions_crm/internal/leads/transport"
	"admissions_crm/internal/scheduler"
	"admissions_crm/platform/httpkit"
	"admissions_crm/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

// TaskEnqueuer hands long-running work to the background worker.
type TaskEnqueuer interface {
	EnqueueAssignBatch(ctx context.Context, method string) (scheduler.Enqueued, error)
	EnqueueAIAssignBatch(ctx context.Context) (scheduler.Enqueued, error)
	EnqueueRouteLead(ctx context.Context, leadID uuid.UUID) (scheduler.Enqueued, error)
	EnqueueImport(ctx context.Context, payload scheduler.ImportLeadsPayload) (scheduler.Enqueued, error)
}

type Handler struct {
	mgmt     *management.Service
	assigner *assignment.Service
	ai       *aiassign.Service
	routing  *routing.Workflow
	imports  *imports.Service
	tasks    TaskEnqueuer
	val      *validator.Validator
}

// Deps groups the services behind the handlers. Tasks may be nil, in which
// case ?async=true is rejected.
type Deps struct {
	Management *management.Service
	Assignment *assignment.Service
	AIAssign   *aiassign.Service
	Routing    *routing.Workflow
	Imports    *imports.Service
	Tasks      TaskEnqueuer
	Validator  *validator.Validator
}

func New(d Deps) *Handler {
	val := d.Validator
	if val == nil {
		val = validator.New()
	}
	return &Handler{
		mgmt:     d.Management,
		assigner: d.Assignment,
		ai:       d.AIAssign,
		routing:  d.Routing,
		imports:  d.Imports,
		tasks:    d.Tasks,
		val:      val,
	}
}

// RegisterCounsellorRoutes mounts the portfolio routes. Every lead is scoped
// to the caller's counsellor profile.
func (h *Handler) RegisterCounsellorRoutes(rg *gin.RouterGroup) {
	h.registerLeadRoutes(rg.Group("/leads"))
	rg.GET("/dashboard", h.Dashboard)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/leads")
	leads.POST("", h.Create)
	leads.POST("/assign", h.AssignBatch)
	leads.POST("/ai-assign", h.AIAssignAll)
	leads.POST("/import", h.Import)
	h.registerLeadRoutes(leads)
	leads.POST("/:id/transfer", h.Transfer)
	leads.POST("/:id/ai-assign", h.AIAssignOne)
	leads.POST("/:id/route", h.Route)
	leads.POST("/:id/score", h.EvaluateScore)
	leads.POST("/:id/manual-route", h.ManualRoute)

	analytics := rg.Group("/analytics")
	analytics.GET("/workload", h.Workload)
	analytics.GET("/dashboard", h.Dashboard)
}

func (h *Handler) registerLeadRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/activities", h.AddActivity)
	rg.POST("/:id/follow-up", h.ScheduleFollowUp)
	rg.POST("/:id/lost", h.MarkLost)
	rg.POST("/:id/convert", h.Convert)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	detail, err := h.mgmt.Get(c.Request.Context(), id, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, detail)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, id, ok := h.actorAndLead(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.UpdateStatus(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) AddActivity(c *gin.Context) {
	actor, id, ok := h.actorAndLead(c)
	if !ok {
		return
	}
	var req transport.AddActivityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	activity, err := h.mgmt.AddActivity(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, activity)
}

func (h *Handler) ScheduleFollowUp(c *gin.Context) {
	actor, id, ok := h.actorAndLead(c)
	if !ok {
		return
	}
	var req transport.ScheduleFollowUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.ScheduleFollowUp(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) MarkLost(c *gin.Context) {
	actor, id, ok := h.actorAndLead(c)
	if !ok {
		return
	}
	var req transport.MarkLostRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.MarkLost(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Convert(c *gin.Context) {
	actor, id, ok := h.actorAndLead(c)
	if !ok {
		return
	}
	var req transport.ConvertLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	business, err := h.mgmt.Convert(c.Request.Context(), id, req, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, business)
}

func (h *Handler) Transfer(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.TransferLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	transfer, err := h.mgmt.Transfer(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transfer)
}

func (h *Handler) Dashboard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	dashboard, err := h.mgmt.DashboardFor(c.Request.Context(), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dashboard)
}

func (h *Handler) Workload(c *gin.Context) {
	workload, err := h.mgmt.CounsellorWorkload(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, workload)
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) actorAndLead(c *gin.Context) (management.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		return management.Actor{}, uuid.Nil, false
	}
	id, ok := leadID(c)
	return actor, id, ok
}

func actorFrom(c *gin.Context) (management.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return management.Actor{}, false
	}
	return management.Actor{UserID: identity.UserID(), Roles: identity.Roles()}, true
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}
