package main

import (
	"context"
	"log/slog"

	"github.com/dukex/autoflow/pkg/eventbus"
	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/scheduler"
	"github.com/dukex/autoflow/pkg/workflow"
)

type WorkerManager struct {
	id         string
	logger     *slog.Logger
	subscriber eventbus.EventSubscriber
	dispatcher scheduler.Dispatcher
	scheduler  *scheduler.Scheduler
}

func NewWorkerManager(
	id string,
	logger *slog.Logger,
	subscriber eventbus.EventSubscriber,
	dispatcher scheduler.Dispatcher,
	schedules *scheduler.Scheduler,
) *WorkerManager {
	return &WorkerManager{
		id:         id,
		logger:     logger.With("module", "worker_manager"),
		subscriber: subscriber,
		dispatcher: dispatcher,
		scheduler:  schedules,
	}
}

// Start consumes trigger events and runs the scheduler until ctx is done.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	err := w.subscriber.Handle(events.TriggerFiredEvent, w.handleTriggerFired)
	if err != nil {
		return err
	}

	err = w.subscriber.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if w.scheduler != nil {
		w.scheduler.Start(ctx)
		defer w.scheduler.Stop()
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	<-ctx.Done()
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

// handleTriggerFired dispatches one trigger event. Malformed events are
// dropped; a failed candidate lookup is returned so the event is redelivered.
func (w *WorkerManager) handleTriggerFired(ctx context.Context, event any) error {
	fired, ok := event.(*events.TriggerFired)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TriggerFired")

		return nil
	}

	logger := w.logger.With("trigger", fired.Trigger, "event_id", fired.ID)

	if fired.Trigger == "" {
		logger.WarnContext(ctx, "Dropping trigger event without trigger name")

		return nil
	}

	data := fired.Payload
	if data == nil {
		data = map[string]any{}
	}

	outcomes, err := w.dispatcher.Dispatch(ctx, fired.Trigger, data)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to dispatch trigger", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Trigger dispatched", summarize(outcomes)...)

	return nil
}

func summarize(outcomes []workflow.RunOutcome) []any {
	counts := map[models.ExecutionStatus]int{}
	for _, outcome := range outcomes {
		counts[outcome.Status]++
	}

	return []any{
		"workflows", len(outcomes),
		"succeeded", counts[models.ExecutionStatusSuccess],
		"skipped", counts[models.ExecutionStatusSkipped],
		"failed", counts[models.ExecutionStatusFailed],
	}
}
