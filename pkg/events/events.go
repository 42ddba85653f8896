// Package events defines the messages exchanged on the event bus: trigger
// events consumed by workers and lifecycle events emitted by runs.
package events

import (
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every autoflow event.
const Topic = "autoflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Inbound: an upstream producer reports a domain event.
	TriggerFiredEvent EventType = "trigger.fired"

	// Workflow execution lifecycle events.
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowExecutionSkippedEvent   EventType = "workflow.execution.skipped"

	// Routed to the notification service.
	UserNotificationEvent EventType = "user.notification"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func newBase(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// TriggerFired asks the engine to dispatch Trigger with Payload.
type TriggerFired struct {
	BaseEvent

	Trigger string         `json:"trigger"`
	Payload map[string]any `json:"payload,omitempty"`
}

func NewTriggerFired(trigger string, payload map[string]any) *TriggerFired {
	return &TriggerFired{
		BaseEvent: newBase(TriggerFiredEvent, ""),
		Trigger:   trigger,
		Payload:   payload,
	}
}

func (TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID   string                 `json:"execution_id"`
	DurationMs    int64                  `json:"duration_ms"`
	ActionResults []models.ActionOutcome `json:"action_results,omitempty"`
}

func NewWorkflowExecutionCompleted(record *models.ExecutionRecord, results []models.ActionOutcome) *WorkflowExecutionCompleted {
	return &WorkflowExecutionCompleted{
		BaseEvent:     newBase(WorkflowExecutionCompletedEvent, record.WorkflowID),
		ExecutionID:   record.ID,
		DurationMs:    record.DurationMs,
		ActionResults: results,
	}
}

func (WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func NewWorkflowExecutionFailed(record *models.ExecutionRecord) *WorkflowExecutionFailed {
	return &WorkflowExecutionFailed{
		BaseEvent:   newBase(WorkflowExecutionFailedEvent, record.WorkflowID),
		ExecutionID: record.ID,
		Error:       record.ErrorMessage,
		DurationMs:  record.DurationMs,
	}
}

func (WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type WorkflowExecutionSkipped struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason"`
}

func NewWorkflowExecutionSkipped(record *models.ExecutionRecord, reason string) *WorkflowExecutionSkipped {
	return &WorkflowExecutionSkipped{
		BaseEvent:   newBase(WorkflowExecutionSkippedEvent, record.WorkflowID),
		ExecutionID: record.ID,
		Reason:      reason,
	}
}

func (WorkflowExecutionSkipped) GetType() EventType {
	return WorkflowExecutionSkippedEvent
}

// UserNotification is a message for one user's inbox.
type UserNotification struct {
	BaseEvent

	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	ExecutionID string `json:"execution_id,omitempty"`
}

func NewUserNotification(userID, workflowID, executionID, title, message string) *UserNotification {
	return &UserNotification{
		BaseEvent:   newBase(UserNotificationEvent, workflowID),
		UserID:      userID,
		Title:       title,
		Message:     message,
		ExecutionID: executionID,
	}
}

func (UserNotification) GetType() EventType {
	return UserNotificationEvent
}

// Decoder returns an empty event of the given type to unmarshal into.
func Decoder(eventType EventType) (any, bool) {
	switch eventType {
	case TriggerFiredEvent:
		return &TriggerFired{}, true
	case WorkflowExecutionCompletedEvent:
		return &WorkflowExecutionCompleted{}, true
	case WorkflowExecutionFailedEvent:
		return &WorkflowExecutionFailed{}, true
	case WorkflowExecutionSkippedEvent:
		return &WorkflowExecutionSkipped{}, true
	case UserNotificationEvent:
		return &UserNotification{}, true
	default:
		return nil, false
	}
}
