package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
)

func metricsApp(runtime *cmd.Runtime) *fiber.App {
	app := fiber.New()

	app.Get("/metrics", adaptor.HTTPHandler(runtime.Metrics.Handler()))
	app.Get("/health", func(c fiber.Ctx) error {
		if err := runtime.Persistence.HealthCheck(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString(err.Error())
		}

		return c.SendString("OK")
	})

	return app
}

func serveMetrics(ctx context.Context, logger *slog.Logger, runtime *cmd.Runtime, port int) {
	app := metricsApp(runtime)

	go func() {
		<-ctx.Done()

		err := app.Shutdown()
		if err != nil {
			logger.Error("Failed to stop metrics server", "error", err)
		}
	}()

	err := app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil {
		logger.ErrorContext(ctx, "Metrics server stopped", "error", err)
	}
}
