// Package cmd provides common initialization functions for the autoflow
// binaries.
package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/actions/crmactions"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/eventbus"
	"github.com/dukex/autoflow/pkg/notify"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// EngineConfig holds what the binaries share when building the engine.
// Publisher, Observer and Tracer may be nil.
type EngineConfig struct {
	Persistence     persistence.Persistence
	Collaborators   crm.Collaborators
	Publisher       eventbus.EventPublisher
	Observer        workflow.Observer
	Tracer          trace.Tracer
	ActionTimeout   time.Duration
	WorkflowTimeout time.Duration
}

// Engine is the assembled evaluation core.
type Engine struct {
	Executor    *actions.Executor
	Evaluator   *conditions.Evaluator
	Runner      *workflow.Runner
	Dispatcher  *workflow.Dispatcher
	Definitions *workflow.DefinitionValidator
}

func NewEngine(logger *slog.Logger, config EngineConfig) (*Engine, error) {
	executor := actions.NewExecutor(logger, config.Tracer, config.ActionTimeout)

	err := crmactions.Register(executor, config.Collaborators)
	if err != nil {
		return nil, fmt.Errorf("failed to register actions: %w", err)
	}

	evaluator := conditions.NewEvaluator(logger)
	pipeline := workflow.NewPipeline(logger, executor, config.Observer)

	runner := workflow.NewRunner(logger, config.Persistence, config.Persistence, evaluator, pipeline, workflow.RunnerConfig{
		Notifier: notify.New(logger, config.Persistence, config.Publisher),
		Observer: config.Observer,
		Tracer:   config.Tracer,
		Timeout:  config.WorkflowTimeout,
	})

	return &Engine{
		Executor:    executor,
		Evaluator:   evaluator,
		Runner:      runner,
		Dispatcher:  workflow.NewDispatcher(logger, config.Persistence, runner, config.Observer, config.Tracer),
		Definitions: workflow.NewDefinitionValidator(executor, evaluator),
	}, nil
}
