// Package workflow runs workflows: the action pipeline, the per-workflow
// runner and the trigger dispatcher fanning out to runners.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/models"
)

// ActionExecutor runs a single action.
type ActionExecutor interface {
	Execute(ctx context.Context, spec models.ActionSpec, req actions.Request) (map[string]any, error)
}

// Pipeline runs a workflow's actions in order. A failing action is recorded
// and the next one still runs.
type Pipeline struct {
	executor ActionExecutor
	observer Observer
	logger   *slog.Logger
}

func NewPipeline(logger *slog.Logger, executor ActionExecutor, observer Observer) *Pipeline {
	if observer == nil {
		observer = NopObserver{}
	}

	return &Pipeline{
		executor: executor,
		observer: observer,
		logger:   logger.With("module", "action_pipeline"),
	}
}

// Run returns one outcome per spec, in order.
func (p *Pipeline) Run(ctx context.Context, specs []models.ActionSpec, req actions.Request) []models.ActionOutcome {
	outcomes := make([]models.ActionOutcome, 0, len(specs))

	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, models.ActionOutcome{Type: spec.Type, Success: false, Error: err.Error()})
			p.observer.ObserveAction(spec.Type, false, 0)

			continue
		}

		start := time.Now()
		result, err := p.executor.Execute(ctx, spec, req)
		elapsed := time.Since(start)

		if err != nil {
			p.logger.WarnContext(ctx, "Action failed, continuing",
				"workflow_id", req.WorkflowID,
				"execution_id", req.ExecutionID,
				"action_type", spec.Type,
				"index", i,
				"error", err,
			)

			outcomes = append(outcomes, models.ActionOutcome{Type: spec.Type, Success: false, Error: err.Error()})
			p.observer.ObserveAction(spec.Type, false, elapsed)

			continue
		}

		outcomes = append(outcomes, models.ActionOutcome{Type: spec.Type, Success: true, Result: result})
		p.observer.ObserveAction(spec.Type, true, elapsed)
	}

	return outcomes
}
