package actions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single action when none is configured.
const DefaultTimeout = 30 * time.Second

// Executor runs actions through their registered handlers.
type Executor struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	timeout  time.Duration
	mu       sync.RWMutex
	handlers map[models.ActionType]Handler
	schemas  map[models.ActionType]*gojsonschema.Schema
}

// NewExecutor creates an executor. A nil tracer disables tracing and a
// non-positive timeout means DefaultTimeout.
func NewExecutor(logger *slog.Logger, tracer trace.Tracer, timeout time.Duration) *Executor {
	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Executor{
		logger:   logger.With("module", "action_executor"),
		tracer:   tracer,
		timeout:  timeout,
		handlers: make(map[models.ActionType]Handler),
		schemas:  make(map[models.ActionType]*gojsonschema.Schema),
	}
}

// Register adds or replaces the handler for its action type.
func (e *Executor) Register(handler Handler) error {
	var schema *gojsonschema.Schema

	if raw := handler.Schema(); raw != nil {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(raw))
		if err != nil {
			return fmt.Errorf("failed to compile schema for %s: %w", handler.Type(), err)
		}

		schema = compiled
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers[handler.Type()] = handler
	e.schemas[handler.Type()] = schema

	return nil
}

// Handler returns the handler registered for actionType.
func (e *Executor) Handler(actionType models.ActionType) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	handler, ok := e.handlers[actionType]

	return handler, ok
}

// Handlers lists registered handlers ordered by type.
func (e *Executor) Handlers() []Handler {
	e.mu.RLock()
	defer e.mu.RUnlock()

	handlers := make([]Handler, 0, len(e.handlers))
	for _, handler := range e.handlers {
		handlers = append(handlers, handler)
	}

	slices.SortFunc(handlers, func(a, b Handler) int {
		return strings.Compare(string(a.Type()), string(b.Type()))
	})

	return handlers
}

// Validate checks spec.Config against its handler's schema. Unknown types
// are accepted.
func (e *Executor) Validate(spec models.ActionSpec) error {
	e.mu.RLock()
	schema := e.schemas[spec.Type]
	e.mu.RUnlock()

	if schema == nil {
		return nil
	}

	config := spec.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return invalidConfig("%s", err.Error())
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return invalidConfig("%s", strings.Join(messages, "; "))
	}

	return nil
}

// Execute runs one action. Unknown types yield a "not implemented" result
// and no error. Handler errors are returned as *Error.
func (e *Executor) Execute(ctx context.Context, spec models.ActionSpec, req Request) (map[string]any, error) {
	logger := e.logger.With("action_type", spec.Type, "workflow_id", req.WorkflowID, "execution_id", req.ExecutionID)

	handler, ok := e.Handler(spec.Type)
	if !ok {
		logger.WarnContext(ctx, "No handler registered for action type")

		return map[string]any{"message": "not implemented"}, nil
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "action.execute",
		attribute.String(otelhelper.ActionTypeKey, string(spec.Type)),
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, req.ExecutionID),
	)
	defer span.End()

	err := e.Validate(spec)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, newError(spec.Type, err)
	}

	req.Config = spec.Config
	if req.Config == nil {
		req.Config = map[string]any{}
	}

	result, err := e.run(ctx, handler, req)
	if err != nil {
		logger.WarnContext(ctx, "Action failed", "error", err)
		otelhelper.SetError(span, err)

		return nil, newError(spec.Type, err)
	}

	logger.DebugContext(ctx, "Action executed")

	return result, nil
}

type handlerResult struct {
	result map[string]any
	err    error
}

// run returns when the handler does or when the deadline passes, whichever
// comes first.
func (e *Executor) run(ctx context.Context, handler Handler, req Request) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	actionCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan handlerResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handlerResult{err: fmt.Errorf("action panicked: %v", r)}
			}
		}()

		result, err := handler.Execute(actionCtx, req)
		done <- handlerResult{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && actionCtx.Err() != nil && ctx.Err() == nil {
			return nil, ErrTimeout
		}

		return out.result, out.err
	case <-actionCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return nil, ErrTimeout
	}
}
