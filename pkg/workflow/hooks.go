package workflow

import (
	"context"
	"time"

	"github.com/dukex/autoflow/pkg/models"
)

// Notifier receives best-effort side effects of a finished run. Errors are
// logged by the runner and never change the run outcome. The workflow is nil
// when loading it was what failed.
type Notifier interface {
	ExecutionSucceeded(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error
	ExecutionFailed(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error
	ExecutionSkipped(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) ExecutionSucceeded(context.Context, *models.Workflow, *models.ExecutionRecord) error {
	return nil
}

func (NopNotifier) ExecutionFailed(context.Context, *models.Workflow, *models.ExecutionRecord) error {
	return nil
}

func (NopNotifier) ExecutionSkipped(context.Context, *models.Workflow, *models.ExecutionRecord) error {
	return nil
}

// Observer receives measurements.
type Observer interface {
	ObserveDispatch(trigger string, matched int)
	ObserveExecution(status models.ExecutionStatus, duration time.Duration)
	ObserveAction(actionType models.ActionType, success bool, duration time.Duration)
}

// NopObserver discards every observation.
type NopObserver struct{}

func (NopObserver) ObserveDispatch(string, int) {}
func (NopObserver) ObserveExecution(models.ExecutionStatus, time.Duration) {}
func (NopObserver) ObserveAction(models.ActionType, bool, time.Duration) {}
