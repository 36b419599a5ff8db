package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskAssignBatch   = "leads.assign_batch"
	TaskAIAssignBatch = "leads.ai_assign_batch"
	TaskRouteLead     = "leads.route"
	TaskImportLeads   = "leads.import"
)

type AssignBatchPayload struct {
	Method string `json:"method"`
}

type AIAssignBatchPayload struct{}

type RouteLeadPayload struct {
	LeadID string `json:"leadId"`
}

// ImportLeadsPayload points at an archived CSV in object storage.
type ImportLeadsPayload struct {
	ObjectKey  string  `json:"objectKey"`
	FileName   string  `json:"fileName,omitempty"`
	Method     string  `json:"method,omitempty"`
	AutoAssign bool    `json:"autoAssign"`
	SourceID   *string `json:"sourceId,omitempty"`
	AssignTo   *string `json:"assignTo,omitempty"`
}

func newTask(typeName string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typeName, data), nil
}

func NewAssignBatchTask(payload AssignBatchPayload) (*asynq.Task, error) {
	return newTask(TaskAssignBatch, payload)
}

func NewAIAssignBatchTask() (*asynq.Task, error) {
	return newTask(TaskAIAssignBatch, AIAssignBatchPayload{})
}

func NewRouteLeadTask(payload RouteLeadPayload) (*asynq.Task, error) {
	return newTask(TaskRouteLead, payload)
}

func NewImportLeadsTask(payload ImportLeadsPayload) (*asynq.Task, error) {
	return newTask(TaskImportLeads, payload)
}

func parsePayload[T any](task *asynq.Task) (T, error) {
	var payload T
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func ParseAssignBatchPayload(task *asynq.Task) (AssignBatchPayload, error) {
	return parsePayload[AssignBatchPayload](task)
}

func ParseRouteLeadPayload(task *asynq.Task) (RouteLeadPayload, error) {
	return parsePayload[RouteLeadPayload](task)
}

func ParseImportLeadsPayload(task *asynq.Task) (ImportLeadsPayload, error) {
	return parsePayload[ImportLeadsPayload](task)
}
