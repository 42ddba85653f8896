package web

import (
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/workflow"
)

// CreateWorkflowRequest is the body of POST /workflows.
type CreateWorkflowRequest struct {
	Name        string                 `json:"name"                  validate:"required,min=3"`
	Description string                 `json:"description,omitempty"`
	TriggerName string                 `json:"trigger_name"          validate:"required"`
	IsActive    *bool                  `json:"is_active,omitempty"`
	Conditions  *models.ConditionGroup `json:"conditions,omitempty"`
	Actions     []models.ActionSpec    `json:"actions"               validate:"required,min=1"`
	OwnerID     string                 `json:"owner_id,omitempty"`
}

// Workflow builds the definition to store. Workflows are active unless
// is_active is explicitly false.
func (r CreateWorkflowRequest) Workflow() *models.Workflow {
	active := r.IsActive == nil || *r.IsActive

	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		IsActive:    active,
		TriggerName: r.TriggerName,
		Conditions:  r.Conditions,
		Actions:     r.Actions,
		OwnerID:     r.OwnerID,
	}
}

// DispatchResponse is returned by POST /triggers/:name.
type DispatchResponse struct {
	Trigger  string                `json:"trigger"`
	Matched  int                   `json:"matched"`
	Outcomes []workflow.RunOutcome `json:"outcomes"`
}

// HistoryResponse is returned by GET /workflows/:id/executions.
type HistoryResponse struct {
	WorkflowID string                    `json:"workflow_id"`
	Limit      int                       `json:"limit"`
	Executions []*models.ExecutionRecord `json:"executions"`
}
