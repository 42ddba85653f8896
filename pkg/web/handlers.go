// Package web provides the HTTP handlers of the autoflow API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Dispatcher fans a trigger out to its workflows.
type Dispatcher interface {
	Dispatch(ctx context.Context, trigger string, data map[string]any) ([]workflow.RunOutcome, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type DefinitionValidator interface {
	Validate(workflow *models.Workflow) error
}

type APIHandlers struct {
	dispatcher  Dispatcher
	workflows   persistence.WorkflowStore
	executions  persistence.ExecutionStore
	definitions DefinitionValidator
	health      HealthChecker
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	logger *slog.Logger,
	dispatcher Dispatcher,
	workflows persistence.WorkflowStore,
	executions persistence.ExecutionStore,
	definitions DefinitionValidator,
	health HealthChecker,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		dispatcher:  dispatcher,
		workflows:   workflows,
		executions:  executions,
		definitions: definitions,
		health:      health,
		validator:   validator,
		logger:      logger.With("module", "api"),
	}
}

// DispatchTrigger runs every workflow registered for the trigger in the path
// with the JSON body as payload.
func (h *APIHandlers) DispatchTrigger(c fiber.Ctx) error {
	trigger := c.Params("name")
	if trigger == "" {
		return badRequest(c, "Trigger name is required")
	}

	data := map[string]any{}

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&data); err != nil {
			return badRequest(c, "Payload must be a JSON object")
		}
	}

	outcomes, err := h.dispatcher.Dispatch(c.Context(), trigger, data)
	if err != nil {
		h.logger.ErrorContext(c.Context(), "Dispatch failed", "trigger", trigger, "error", err)

		return internalError(c, err)
	}

	return c.JSON(DispatchResponse{Trigger: trigger, Matched: len(outcomes), Outcomes: outcomes})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflows.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflows.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := req.Workflow()

	if err := h.definitions.Validate(workflow); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.workflows.SaveWorkflow(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

// DeleteWorkflow soft-deletes: the definition stays readable for history but
// is never dispatched again.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflows.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	if workflow.DeletedAt == nil {
		now := time.Now().UTC()
		workflow.DeletedAt = &now
		workflow.IsActive = false

		if err := h.workflows.SaveWorkflow(c.Context(), workflow); err != nil {
			return internalError(c, err)
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	workflowID := c.Params("id")

	limit := 0

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "Invalid query parameters: limit must be an integer")
		}

		limit = parsed
	}

	limit = persistence.ClampLimit(limit)

	records, err := h.executions.ExecutionsByWorkflow(c.Context(), workflowID, limit)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(HistoryResponse{WorkflowID: workflowID, Limit: limit, Executions: records})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	record, err := h.executions.ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Autoflow API is healthy"
	httpStatus := http.StatusOK
	check := "ok"

	if err := h.health.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Autoflow API is unhealthy"
		httpStatus = http.StatusServiceUnavailable
		check = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": check,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Register mounts the handlers on app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Post("/triggers/:name", h.DispatchTrigger)

	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	app.Get("/executions/:id", h.GetExecution)
}
