package models

import "time"

// ExecutionStatus is the lifecycle state of an execution record.
type ExecutionStatus string

const (
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed  ExecutionStatus = "FAILED"
	ExecutionStatusSkipped ExecutionStatus = "SKIPPED"
)

// Terminal reports whether no further transition is allowed from s.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusSkipped:
		return true
	default:
		return false
	}
}

// ExecutionRecord is the audit row for one workflow run. It is created RUNNING
// and closed exactly once with a terminal status.
type ExecutionRecord struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	TriggerPayload map[string]any  `json:"trigger_payload,omitempty"`
	Status         ExecutionStatus `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	DurationMs     int64           `json:"duration_ms"`
	Result         map[string]any  `json:"result,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// Close moves the record to a terminal status. It is a no-op returning false
// when the record is already closed or status is not terminal.
func (r *ExecutionRecord) Close(status ExecutionStatus, result map[string]any, errorMessage string, at time.Time) bool {
	if r.Status.Terminal() || !status.Terminal() {
		return false
	}

	r.Status = status
	r.Result = result
	r.ErrorMessage = errorMessage
	r.CompletedAt = &at
	r.DurationMs = at.Sub(r.StartedAt).Milliseconds()

	return true
}
