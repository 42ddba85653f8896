package models

import "time"

const (
	ActivityWorkflowExecuted = "workflow_executed"
	ActivityWorkflowFailed   = "workflow_failed"
)

// Activity is an audit-log entry written as a side effect of a run.
type Activity struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	UserID      string         `json:"user_id,omitempty"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
