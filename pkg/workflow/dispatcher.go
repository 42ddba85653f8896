package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/payload"
	"github.com/dukex/autoflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WorkflowRunner runs a single workflow.
type WorkflowRunner interface {
	Run(ctx context.Context, workflowID, trigger string, data map[string]any) RunOutcome
}

// Dispatcher fans a trigger event out to every matching workflow.
type Dispatcher struct {
	workflows persistence.WorkflowStore
	runner    WorkflowRunner
	observer  Observer
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewDispatcher(logger *slog.Logger, workflows persistence.WorkflowStore, runner WorkflowRunner, observer Observer, tracer trace.Tracer) *Dispatcher {
	if observer == nil {
		observer = NopObserver{}
	}

	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	return &Dispatcher{
		workflows: workflows,
		runner:    runner,
		observer:  observer,
		tracer:    tracer,
		logger:    logger.With("module", "trigger_dispatcher"),
	}
}

// Dispatch runs every active workflow registered for trigger concurrently
// and returns all outcomes in the order the store listed the workflows.
// A failing run is reported in its outcome and does not affect the others;
// an error is returned only when the candidates cannot be loaded.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger string, data map[string]any) ([]RunOutcome, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "trigger.dispatch", attribute.String(otelhelper.TriggerKey, trigger))
	defer span.End()

	logger := d.logger.With("trigger", trigger)

	candidates, err := d.workflows.FindActiveByTrigger(ctx, trigger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to find workflows for trigger %s: %w", trigger, err)
	}

	// stores are expected to filter already
	matched := make([]*models.Workflow, 0, len(candidates))
	for _, workflow := range candidates {
		if workflow.Dispatchable(trigger) {
			matched = append(matched, workflow)
		}
	}

	span.SetAttributes(attribute.Int(otelhelper.MatchedKey, len(matched)))
	d.observer.ObserveDispatch(trigger, len(matched))

	if len(matched) == 0 {
		logger.DebugContext(ctx, "No workflows registered for trigger")

		return []RunOutcome{}, nil
	}

	logger.InfoContext(ctx, "Dispatching trigger", "workflows", len(matched))

	outcomes := make([]RunOutcome, len(matched))

	var wg sync.WaitGroup

	for i, workflow := range matched {
		wg.Add(1)

		go func(i int, workflowID string) {
			defer wg.Done()

			defer func() {
				if p := recover(); p != nil {
					logger.ErrorContext(ctx, "Runner panicked", "workflow_id", workflowID, "panic", p)

					err := fmt.Errorf("workflow run panicked: %v", p)
					outcomes[i] = RunOutcome{WorkflowID: workflowID, Status: models.ExecutionStatusFailed, Error: err.Error(), Err: err}
				}
			}()

			outcomes[i] = d.runner.Run(ctx, workflowID, trigger, payload.Clone(data))
		}(i, workflow.ID)
	}

	wg.Wait()

	return outcomes, nil
}
