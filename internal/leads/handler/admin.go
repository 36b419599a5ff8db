package handler

import (
	"net/http"
	"strconv"

	"admissions_crm/internal/leads/assignment"
	"admissions_crm/internal/leads/domain"
	"admissions_crm/internal/leads/imports"
	"admissions_crm/internal/leads/routing"
	"admissions_crm/internal/leads/transport"
	"admissions_crm/internal/scheduler"
	"admissions_crm/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgWorkerUnavailable = "background worker not configured"
	msgMissingFile       = "file is required"
)

func (h *Handler) AssignBatch(c *gin.Context) {
	var req transport.AssignBatchRequest
	// An empty body means the default method.
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	method := assignment.ParseMethod(req.Method)

	if h.async(c) {
		if !h.requireWorker(c) {
			return
		}
		task, err := h.tasks.EnqueueAssignBatch(c.Request.Context(), string(method))
		h.respondEnqueued(c, task, err)
		return
	}

	result, err := h.assigner.AssignUnassigned(c.Request.Context(), method)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, assignmentResponse(method, result))
}

func (h *Handler) AIAssignAll(c *gin.Context) {
	if h.async(c) {
		if !h.requireWorker(c) {
			return
		}
		task, err := h.tasks.EnqueueAIAssignBatch(c.Request.Context())
		h.respondEnqueued(c, task, err)
		return
	}

	result, err := h.ai.AssignAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) AIAssignOne(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	decision, err := h.ai.AssignOne(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, decision)
}

// Route runs the full enrich, score and route workflow.
func (h *Handler) Route(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	if h.async(c) {
		if !h.requireWorker(c) {
			return
		}
		task, err := h.tasks.EnqueueRouteLead(c.Request.Context(), id)
		h.respondEnqueued(c, task, err)
		return
	}

	opts := routing.Options{}
	if c.Query("strict") == "true" {
		opts.Terminal = routing.RejectTerminal
	}
	pipeline, err := h.routing.Run(c.Request.Context(), id, opts)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, pipeline)
}

func (h *Handler) EvaluateScore(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	pipeline, err := h.routing.EvaluateScore(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, pipeline)
}

func (h *Handler) ManualRoute(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.ManualRouteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	pipeline, err := h.routing.ManualRoute(c.Request.Context(), id, domain.Route(req.Route), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, pipeline)
}

// Import accepts a multipart CSV upload in the "file" field.
func (h *Handler) Import(c *gin.Context) {
	var req transport.ImportLeadsRequest
	if err := c.ShouldBind(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingFile, nil)
		return
	}
	defer file.Close()

	if h.async(c) {
		if !h.requireWorker(c) {
			return
		}
		if !h.imports.CanArchive() {
			httpkit.Error(c, http.StatusBadRequest, "async import requires object storage", nil)
			return
		}
		key, err := h.imports.Archive(c.Request.Context(), file, header.Filename)
		if httpkit.HandleError(c, err) {
			return
		}
		task, err := h.tasks.EnqueueImport(c.Request.Context(), scheduler.ImportLeadsPayload{
			ObjectKey:  key,
			FileName:   header.Filename,
			Method:     req.Method,
			AutoAssign: req.AutoAssign,
			SourceID:   optionalString(req.SourceID),
			AssignTo:   optionalString(req.AssignTo),
		})
		h.respondEnqueued(c, task, err)
		return
	}

	result, err := h.imports.Import(c.Request.Context(), file, imports.Options{
		FileName:   header.Filename,
		SourceID:   optionalUUID(req.SourceID),
		AssignTo:   optionalUUID(req.AssignTo),
		AutoAssign: req.AutoAssign,
		Method:     assignment.ParseMethod(req.Method),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) async(c *gin.Context) bool {
	async, _ := strconv.ParseBool(c.Query("async"))
	return async
}

func (h *Handler) requireWorker(c *gin.Context) bool {
	if h.tasks == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, msgWorkerUnavailable, nil)
		return false
	}
	return true
}

func (h *Handler) respondEnqueued(c *gin.Context, task scheduler.Enqueued, err error) {
	if err != nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "failed to enqueue task", nil)
		return
	}
	httpkit.Accepted(c, transport.TaskEnqueuedResponse{TaskID: task.TaskID, Queue: task.Queue})
}

func assignmentResponse(method assignment.Method, result assignment.Result) transport.AssignmentResultResponse {
	items := make([]transport.AssignmentItem, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		items = append(items, transport.AssignmentItem{
			LeadID:         a.Lead.ID,
			CounsellorID:   a.Counsellor.ID,
			CounsellorName: a.Counsellor.FullName(),
		})
	}
	return transport.AssignmentResultResponse{
		Method:      method.Label(),
		Assigned:    result.Assigned,
		Failed:      result.Failed,
		Assignments: items,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optionalUUID expects s to have passed the uuid validator.
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
