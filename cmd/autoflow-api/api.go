package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	runtime  *cmd.Runtime
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, runtime *cmd.Runtime) *API {
	return &API{
		logger:   logger,
		runtime:  runtime,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.logger,
		a.runtime.Engine.Dispatcher,
		a.runtime.Persistence,
		a.runtime.Persistence,
		a.runtime.Engine.Definitions,
		a.runtime.Persistence,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Autoflow API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(a.runtime.Metrics.Handler()))

	handlers.Register(app)

	return app
}

// Start serves until ctx is done.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
