package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/config"
	"github.com/dukex/autoflow/pkg/eventbus"
	"github.com/dukex/autoflow/pkg/metrics"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/dukex/autoflow/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

// CommonFlags are accepted by every autoflow binary.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Database connection URL for persistence (file://path or postgres://...)",
			Value:   "file://./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka broker addresses",
			Value:   []string{"localhost:9092"},
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the email outbox; empty keeps emails in the CRM store",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "config-file",
			Usage:   "Path to the YAML config with timeouts and schedules",
			Sources: cli.EnvVars("CONFIG_FILE"),
		},
		&cli.DurationFlag{
			Name:    "action-timeout",
			Usage:   "Maximum duration of a single action",
			Value:   config.DefaultActionTimeout,
			Sources: cli.EnvVars("ACTION_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    "workflow-timeout",
			Usage:   "Maximum duration of a workflow run",
			Value:   config.DefaultWorkflowTimeout,
			Sources: cli.EnvVars("WORKFLOW_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// LoadConfig reads the config file and applies timeout flags set explicitly
// on the command line or environment.
func LoadConfig(command *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(command.String("config-file"))
	if err != nil {
		return nil, err
	}

	if command.IsSet("action-timeout") {
		cfg.Timeouts.Action = command.Duration("action-timeout")
	}

	if command.IsSet("workflow-timeout") {
		cfg.Timeouts.Workflow = command.Duration("workflow-timeout")
	}

	return cfg, cfg.Validate()
}

// Runtime is everything a binary needs, built from CommonFlags.
type Runtime struct {
	Config      *config.Config
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Metrics     *metrics.Metrics
	Engine      *Engine

	closers []func(context.Context) error
}

func NewRuntime(ctx context.Context, logger *slog.Logger, command *cli.Command, serviceName string) (*Runtime, error) {
	cfg, err := LoadConfig(command)
	if err != nil {
		return nil, err
	}

	runtime := &Runtime{Config: cfg, Metrics: metrics.New()}

	tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName, command.Bool("tracing"))
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	runtime.closers = append(runtime.closers, shutdown)

	runtime.Persistence = NewPersistence(ctx, logger, command.String("database-url"))
	runtime.closers = append(runtime.closers, runtime.Persistence.Close)

	runtime.EventBus = NewEventBus(logger, command.String("event-bus"), command.StringSlice("kafka-brokers"), serviceName)
	runtime.closers = append(runtime.closers, func(context.Context) error { return runtime.EventBus.Close() })

	collaborators, closeRedis := NewCollaborators(ctx, logger, runtime.Persistence, command.String("redis-url"))
	runtime.closers = append(runtime.closers, func(context.Context) error { return closeRedis() })

	runtime.Engine, err = NewEngine(logger, EngineConfig{
		Persistence:     runtime.Persistence,
		Collaborators:   collaborators,
		Publisher:       runtime.EventBus,
		Observer:        runtime.Metrics,
		Tracer:          tracer,
		ActionTimeout:   cfg.Timeouts.Action,
		WorkflowTimeout: cfg.Timeouts.Workflow,
	})
	if err != nil {
		return nil, errors.Join(err, runtime.Close(ctx))
	}

	return runtime, nil
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error

	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	r.closers = nil

	return errors.Join(errs...)
}
