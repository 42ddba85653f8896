// Package models defines the core domain models for trigger-driven workflow automation.
package models

import "time"

// Workflow is a stored automation definition: a trigger, an optional condition
// group gating it, and the ordered actions to run when the gate passes.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"                  validate:"required,min=3"`
	Description string          `json:"description,omitempty"`
	IsActive    bool            `json:"is_active"`
	TriggerName string          `json:"trigger_name"          validate:"required"`
	Conditions  *ConditionGroup `json:"conditions,omitempty"`
	Actions     []ActionSpec    `json:"actions"               validate:"dive"`
	OwnerID     string          `json:"owner_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

// Dispatchable reports whether the workflow should run for triggerName.
func (w *Workflow) Dispatchable(triggerName string) bool {
	return w.IsActive && w.DeletedAt == nil && w.TriggerName == triggerName
}
