// Package notify implements the runner's best-effort side effects: activity
// log entries, owner notifications and execution lifecycle events.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/eventbus"
	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

// Notifier writes activities to store and publishes events to publisher.
// Either may be nil to disable that channel.
type Notifier struct {
	activities persistence.ActivityStore
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
}

func New(logger *slog.Logger, activities persistence.ActivityStore, publisher eventbus.EventPublisher) *Notifier {
	return &Notifier{
		activities: activities,
		publisher:  publisher,
		logger:     logger.With("module", "notifier"),
	}
}

// ExecutionSucceeded records the activity, tells the owner and announces the
// completion. Each step is attempted even if an earlier one failed.
func (n *Notifier) ExecutionSucceeded(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error {
	name := workflowName(workflow, record)
	message := fmt.Sprintf("Workflow %q executed successfully", name)

	return errors.Join(
		n.activity(ctx, models.ActivityWorkflowExecuted, workflow, record, message),
		n.notifyOwner(ctx, workflow, record, "Workflow executed", message),
		n.publish(ctx, record.WorkflowID, events.NewWorkflowExecutionCompleted(record, actionResults(record))),
	)
}

func (n *Notifier) ExecutionFailed(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error {
	name := workflowName(workflow, record)
	message := fmt.Sprintf("Workflow %q failed: %s", name, record.ErrorMessage)

	return errors.Join(
		n.activity(ctx, models.ActivityWorkflowFailed, workflow, record, message),
		n.notifyOwner(ctx, workflow, record, "Workflow failed", message),
		n.publish(ctx, record.WorkflowID, events.NewWorkflowExecutionFailed(record)),
	)
}

// ExecutionSkipped only announces the skip; owners are not notified.
func (n *Notifier) ExecutionSkipped(ctx context.Context, _ *models.Workflow, record *models.ExecutionRecord) error {
	reason, _ := record.Result["reason"].(string)

	return n.publish(ctx, record.WorkflowID, events.NewWorkflowExecutionSkipped(record, reason))
}

func (n *Notifier) activity(ctx context.Context, activityType string, workflow *models.Workflow, record *models.ExecutionRecord, description string) error {
	if n.activities == nil {
		return nil
	}

	activity := &models.Activity{
		Type:        activityType,
		WorkflowID:  record.WorkflowID,
		ExecutionID: record.ID,
		Description: description,
		Metadata: map[string]any{
			"status":     string(record.Status),
			"durationMs": record.DurationMs,
		},
	}

	if workflow != nil {
		activity.UserID = workflow.OwnerID
	}

	err := n.activities.CreateActivity(ctx, activity)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

func (n *Notifier) notifyOwner(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord, title, message string) error {
	if workflow == nil || workflow.OwnerID == "" {
		return nil
	}

	return n.publish(ctx, workflow.OwnerID, events.NewUserNotification(workflow.OwnerID, record.WorkflowID, record.ID, title, message))
}

func (n *Notifier) publish(ctx context.Context, key string, event eventbus.Event) error {
	if n.publisher == nil {
		return nil
	}

	err := n.publisher.Publish(ctx, key, event)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.GetType(), err)
	}

	n.logger.DebugContext(ctx, "Published event", "event_type", event.GetType(), "key", key)

	return nil
}

func workflowName(workflow *models.Workflow, record *models.ExecutionRecord) string {
	if workflow == nil || workflow.Name == "" {
		return record.WorkflowID
	}

	return workflow.Name
}

func actionResults(record *models.ExecutionRecord) []models.ActionOutcome {
	results, _ := record.Result["actionResults"].([]models.ActionOutcome)

	return results
}
