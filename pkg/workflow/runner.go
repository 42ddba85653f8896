package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/payload"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTimeout bounds one workflow run when none is configured.
	DefaultTimeout = 2 * time.Minute

	// finalizeTimeout bounds the terminal write and notifications, which run
	// on a context detached from the run's own deadline.
	finalizeTimeout = 10 * time.Second

	// SkipReasonConditionsNotMet is the reason reported for SKIPPED runs.
	SkipReasonConditionsNotMet = "Conditions not met"
)

// ConditionEvaluator decides whether a workflow's actions run.
type ConditionEvaluator interface {
	EvaluateGroup(group *models.ConditionGroup, data map[string]any) (bool, error)
}

// RunOutcome is what one runner invocation reports to its caller.
type RunOutcome struct {
	WorkflowID  string                 `json:"workflowId"`
	ExecutionID string                 `json:"executionId"`
	Status      models.ExecutionStatus `json:"status"`
	Reason      string                 `json:"reason,omitempty"`
	Results     []models.ActionOutcome `json:"actionResults,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Err         error                  `json:"-"`
}

// Runner executes one workflow for one trigger event and owns that run's
// execution record.
type Runner struct {
	workflows  persistence.WorkflowStore
	executions persistence.ExecutionStore
	evaluator  ConditionEvaluator
	pipeline   *Pipeline
	notifier   Notifier
	observer   Observer
	tracer     trace.Tracer
	logger     *slog.Logger
	timeout    time.Duration
	now        func() time.Time
	newID      func() string
}

// RunnerConfig holds the runner's optional collaborators. Zero values fall
// back to no-op implementations and defaults.
type RunnerConfig struct {
	Notifier Notifier
	Observer Observer
	Tracer   trace.Tracer
	Timeout  time.Duration
}

func NewRunner(
	logger *slog.Logger,
	workflows persistence.WorkflowStore,
	executions persistence.ExecutionStore,
	evaluator ConditionEvaluator,
	pipeline *Pipeline,
	config RunnerConfig,
) *Runner {
	runner := &Runner{
		workflows:  workflows,
		executions: executions,
		evaluator:  evaluator,
		pipeline:   pipeline,
		notifier:   config.Notifier,
		observer:   config.Observer,
		tracer:     config.Tracer,
		timeout:    config.Timeout,
		logger:     logger.With("module", "workflow_runner"),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.Must(uuid.NewV7()).String() },
	}

	if runner.notifier == nil {
		runner.notifier = NopNotifier{}
	}

	if runner.observer == nil {
		runner.observer = NopObserver{}
	}

	if runner.tracer == nil {
		runner.tracer = otelhelper.Noop()
	}

	if runner.timeout <= 0 {
		runner.timeout = DefaultTimeout
	}

	return runner
}

// Run loads the workflow, records a RUNNING execution, evaluates the
// conditions and runs the actions. Every call closes exactly one execution
// record as SUCCESS, SKIPPED or FAILED.
func (r *Runner) Run(ctx context.Context, workflowID, trigger string, data map[string]any) (outcome RunOutcome) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.TriggerKey, trigger),
	)
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := r.logger.With("workflow_id", workflowID, "trigger", trigger)

	record := &models.ExecutionRecord{
		ID:             r.newID(),
		WorkflowID:     workflowID,
		TriggerPayload: payload.Clone(data),
		Status:         models.ExecutionStatusRunning,
		StartedAt:      r.now(),
	}
	logger = logger.With("execution_id", record.ID)
	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, record.ID))

	outcome = RunOutcome{WorkflowID: workflowID, ExecutionID: record.ID, Status: models.ExecutionStatusRunning}

	var workflow *models.Workflow

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Workflow run panicked", "panic", p)

			if record.Status.Terminal() {
				outcome.Status = record.Status
			} else {
				outcome = r.fail(ctx, logger, workflow, record, fmt.Errorf("workflow run panicked: %v", p))
			}
		}

		span.SetAttributes(attribute.String(otelhelper.StatusKey, string(outcome.Status)))

		if outcome.Err != nil {
			otelhelper.SetError(span, outcome.Err)
		}
	}()

	workflow, loadErr := r.workflows.FindByID(runCtx, workflowID)

	createErr := r.executions.CreateExecution(runCtx, record)
	if createErr != nil {
		logger.ErrorContext(ctx, "Failed to create execution record", "error", createErr)
	}

	if loadErr != nil {
		return r.fail(ctx, logger, nil, record, fmt.Errorf("failed to load workflow: %w", loadErr))
	}

	// Actions never run without a stored RUNNING record.
	if createErr != nil {
		return r.fail(ctx, logger, workflow, record, fmt.Errorf("failed to create execution record: %w", createErr))
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowNameKey, workflow.Name))

	passed, err := r.evaluator.EvaluateGroup(workflow.Conditions, data)
	if err != nil {
		return r.fail(ctx, logger, workflow, record, fmt.Errorf("failed to evaluate conditions: %w", err))
	}

	if !passed {
		logger.InfoContext(ctx, "Conditions not met, skipping workflow")

		r.finalize(ctx, logger, record, models.ExecutionStatusSkipped,
			map[string]any{"reason": SkipReasonConditionsNotMet}, "")
		r.notify(ctx, logger, "skipped", func(ctx context.Context) error {
			return r.notifier.ExecutionSkipped(ctx, workflow, record)
		})

		outcome.Status = models.ExecutionStatusSkipped
		outcome.Reason = SkipReasonConditionsNotMet

		return outcome
	}

	results := r.pipeline.Run(runCtx, workflow.Actions, actions.Request{
		WorkflowID:  workflow.ID,
		ExecutionID: record.ID,
		Trigger:     trigger,
		Payload:     data,
	})

	r.finalize(ctx, logger, record, models.ExecutionStatusSuccess, map[string]any{"actionResults": results}, "")
	r.notify(ctx, logger, "succeeded", func(ctx context.Context) error {
		return r.notifier.ExecutionSucceeded(ctx, workflow, record)
	})

	logger.InfoContext(ctx, "Workflow executed", "actions", len(results), "duration_ms", record.DurationMs)

	outcome.Status = models.ExecutionStatusSuccess
	outcome.Results = results

	return outcome
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, record *models.ExecutionRecord, err error) RunOutcome {
	logger.ErrorContext(ctx, "Workflow run failed", "error", err)

	r.finalize(ctx, logger, record, models.ExecutionStatusFailed, nil, err.Error())
	r.notify(ctx, logger, "failed", func(ctx context.Context) error {
		return r.notifier.ExecutionFailed(ctx, workflow, record)
	})

	return RunOutcome{
		WorkflowID:  record.WorkflowID,
		ExecutionID: record.ID,
		Status:      models.ExecutionStatusFailed,
		Error:       err.Error(),
		Err:         err,
	}
}

// finalize closes the record and persists it on a context that outlives the
// run's deadline.
func (r *Runner) finalize(ctx context.Context, logger *slog.Logger, record *models.ExecutionRecord, status models.ExecutionStatus, result map[string]any, errorMessage string) {
	if !record.Close(status, result, errorMessage, r.now()) {
		logger.WarnContext(ctx, "Execution record already closed", "status", record.Status)

		return
	}

	r.observer.ObserveExecution(status, time.Duration(record.DurationMs)*time.Millisecond)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	err := r.executions.CompleteExecution(writeCtx, record)
	if err != nil && !errors.Is(err, persistence.ErrExecutionAlreadyCompleted) {
		logger.ErrorContext(ctx, "Failed to persist execution record", "status", status, "error", err)
	}
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, kind string, send func(context.Context) error) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Notifier panicked", "notification", kind, "panic", p)
		}
	}()

	err := send(notifyCtx)
	if err != nil {
		logger.WarnContext(ctx, "Notification failed", "notification", kind, "error", err)
	}
}
