// Package scheduler fires configured triggers on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/payload"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/robfig/cron/v3"
)

// FiredAtKey is the payload key holding the RFC3339 fire time.
const FiredAtKey = "firedAt"

var ErrUnknownSchedule = errors.New("unknown schedule")

// Dispatcher is the part of workflow.Dispatcher the scheduler needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, trigger string, data map[string]any) ([]workflow.RunOutcome, error)
}

type Scheduler struct {
	dispatcher Dispatcher
	schedules  map[string]config.Schedule
	cron       *cron.Cron
	entries    map[string]cron.EntryID
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers every active schedule. It fails on the first invalid cron
// expression.
func New(logger *slog.Logger, dispatcher Dispatcher, schedules []config.Schedule) (*Scheduler, error) {
	logger = logger.With("module", "scheduler")
	cronLogger := slogAdapter{logger: logger}

	s := &Scheduler{
		dispatcher: dispatcher,
		schedules:  make(map[string]config.Schedule, len(schedules)),
		entries:    make(map[string]cron.EntryID, len(schedules)),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		ctx:        context.Background(),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
	}

	for _, schedule := range schedules {
		if !schedule.Active() {
			logger.Info("Schedule is disabled, skipping", "schedule", schedule.Name)

			continue
		}

		entryID, err := s.cron.AddFunc(schedule.Cron, func() { s.fire(schedule) })
		if err != nil {
			return nil, fmt.Errorf("failed to add schedule %s: %w", schedule.Name, err)
		}

		s.schedules[schedule.Name] = schedule
		s.entries[schedule.Name] = entryID
	}

	return s, nil
}

// Start runs the cron loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Starting scheduler", "schedules", len(s.entries))
	s.cron.Start()

	go func() {
		<-s.context().Done()
		s.cron.Stop()
	}()
}

// Stop halts the scheduler and waits for running dispatches to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Next returns the next fire time of the named schedule.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	entryID, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}

	return s.cron.Entry(entryID).Schedule.Next(s.now()), true
}

// RunNow fires the named schedule immediately and returns its outcomes.
func (s *Scheduler) RunNow(ctx context.Context, name string) ([]workflow.RunOutcome, error) {
	schedule, ok := s.schedules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchedule, name)
	}

	return s.dispatch(ctx, schedule)
}

func (s *Scheduler) fire(schedule config.Schedule) {
	outcomes, err := s.dispatch(s.context(), schedule)
	if err != nil {
		s.logger.Error("Scheduled dispatch failed", "schedule", schedule.Name, "trigger", schedule.Trigger, "error", err)

		return
	}

	failed := 0

	for _, outcome := range outcomes {
		if outcome.Status == models.ExecutionStatusFailed {
			failed++
		}
	}

	s.logger.Info("Scheduled dispatch finished",
		"schedule", schedule.Name,
		"trigger", schedule.Trigger,
		"workflows", len(outcomes),
		"failed", failed,
	)
}

func (s *Scheduler) dispatch(ctx context.Context, schedule config.Schedule) ([]workflow.RunOutcome, error) {
	data := payload.Clone(schedule.Payload)
	if data == nil {
		data = map[string]any{}
	}

	data[FiredAtKey] = s.now().Format(time.RFC3339)

	return s.dispatcher.Dispatch(ctx, schedule.Trigger, data)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ctx
}

// slogAdapter lets cron's job wrappers log through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error(msg, append(keysAndValues, "error", err)...)
}
