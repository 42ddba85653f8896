// Package main provides the autoflow worker: it consumes trigger events and
// fires scheduled triggers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/scheduler"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "autoflow-worker"

func main() {
	flags := append(cmd.CommonFlags(),
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "Port serving /metrics and /health; 0 disables it",
			Value:   9092,
			Sources: cli.EnvVars("METRICS_PORT"),
		},
	)

	command := &cli.Command{
		Name:                  serviceName,
		EnableShellCompletion: true,
		Usage:                 "Consume trigger events and run matching workflows",
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule(serviceName).With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing autoflow worker")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runtime, err := cmd.NewRuntime(ctx, logger, command, serviceName)
			if err != nil {
				return err
			}

			defer func() {
				err := runtime.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			schedules, err := scheduler.New(logger, runtime.Engine.Dispatcher, runtime.Config.Schedules)
			if err != nil {
				return err
			}

			if port := command.Int("metrics-port"); port > 0 {
				go serveMetrics(ctx, logger, runtime, port)
			}

			worker := NewWorkerManager(workerID, logger, runtime.EventBus, runtime.Engine.Dispatcher, schedules)

			return worker.Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
