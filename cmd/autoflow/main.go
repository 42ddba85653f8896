// Package main provides the autoflow admin CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "autoflow"

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Dispatch triggers and manage workflows",
		EnableShellCompletion: true,
		Flags:                 cmd.CommonFlags(),
		Commands: []*cli.Command{
			{
				Name:      "dispatch",
				Aliases:   []string{"d"},
				Usage:     "Fire a trigger and print the outcome of every matched workflow",
				ArgsUsage: "<trigger>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "data",
						Usage: "Trigger payload as inline JSON",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the trigger payload from a JSON file; - reads stdin",
					},
				},
				Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
					trigger := command.Args().First()
					if trigger == "" {
						return fmt.Errorf("%w: trigger name is required", errUsage)
					}

					data, err := readPayload(command.String("data"), command.String("file"), os.Stdin)
					if err != nil {
						return err
					}

					return dispatch(ctx, os.Stdout, runtime.Engine.Dispatcher, trigger, data)
				}),
			},
			{
				Name:      "history",
				Aliases:   []string{"h"},
				Usage:     "List recent executions of a workflow",
				ArgsUsage: "<workflow-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of executions to list",
						Value:   persistence.DefaultHistoryLimit,
					},
				},
				Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
					workflowID := command.Args().First()
					if workflowID == "" {
						return fmt.Errorf("%w: workflow id is required", errUsage)
					}

					return history(ctx, os.Stdout, runtime.Persistence, workflowID, command.Int("limit"))
				}),
			},
			{
				Name:    "workflows",
				Aliases: []string{"w"},
				Usage:   "Manage workflow definitions",
				Commands: []*cli.Command{
					{
						Name:      "apply",
						Usage:     "Validate and store workflow definitions from a YAML or JSON file",
						ArgsUsage: "<file>",
						Action: withRuntime(func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error {
							path := command.Args().First()
							if path == "" {
								return fmt.Errorf("%w: definitions file is required", errUsage)
							}

							data, err := os.ReadFile(path)
							if err != nil {
								return fmt.Errorf("failed to read definitions: %w", err)
							}

							return apply(ctx, os.Stdout, runtime.Persistence, runtime.Engine.Definitions, data)
						}),
					},
					{
						Name:  "validate",
						Usage: "Check every stored workflow definition",
						Action: withRuntime(func(ctx context.Context, _ *cli.Command, runtime *cmd.Runtime) error {
							return validateAll(ctx, os.Stdout, runtime.Persistence, runtime.Engine.Definitions)
						}),
					},
				},
			},
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runtimeAction func(ctx context.Context, command *cli.Command, runtime *cmd.Runtime) error

// withRuntime builds the shared runtime from the root flags and closes it
// once the action returns.
func withRuntime(action runtimeAction) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) (err error) {
		log.Setup(command.String("log-level"))

		logger := log.WithModule(serviceName)

		runtime, err := cmd.NewRuntime(ctx, logger, command, serviceName)
		if err != nil {
			return err
		}

		defer func() {
			closeErr := runtime.Close(context.WithoutCancel(ctx))
			if closeErr != nil {
				logger.ErrorContext(ctx, "Failed to close runtime", "error", closeErr)
			}
		}()

		return action(ctx, command, runtime)
	}
}
