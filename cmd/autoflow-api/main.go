// Package main provides the autoflow HTTP API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const (
	serviceName = "autoflow-api"
	defaultPort = 9091
)

func main() {
	flags := append(cmd.CommonFlags(),
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
	)

	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Serve trigger dispatch and execution history over HTTP",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule(serviceName)
			logger.InfoContext(ctx, "Initializing autoflow API")

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

			return NewAPI(logger, runtime).Start(ctx, command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
