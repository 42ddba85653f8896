package actions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	actionType models.ActionType
	schema     map[string]any
	execute    func(ctx context.Context, req actions.Request) (map[string]any, error)
}

func (h *stubHandler) Type() models.ActionType { return h.actionType }
func (h *stubHandler) Description() string     { return "stub" }
func (h *stubHandler) Schema() map[string]any  { return h.schema }

func (h *stubHandler) Execute(ctx context.Context, req actions.Request) (map[string]any, error) {
	return h.execute(ctx, req)
}

func newExecutor(t *testing.T, timeout time.Duration, handlers ...actions.Handler) *actions.Executor {
	t.Helper()

	executor := actions.NewExecutor(log.Discard(), nil, timeout)
	for _, handler := range handlers {
		require.NoError(t, executor.Register(handler))
	}

	return executor
}

func TestExecutor_UnknownTypeIsNotImplemented(t *testing.T) {
	executor := newExecutor(t, time.Second)

	result, err := executor.Execute(context.Background(), models.ActionSpec{Type: "LAUNCH_ROCKET"}, actions.Request{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "not implemented"}, result)
}

func TestExecutor_PassesConfigAndPayload(t *testing.T) {
	var got actions.Request

	handler := &stubHandler{
		actionType: models.ActionChangeStatus,
		execute: func(_ context.Context, req actions.Request) (map[string]any, error) {
			got = req
			return map[string]any{"statusChanged": true}, nil
		},
	}
	executor := newExecutor(t, time.Second, handler)

	result, err := executor.Execute(context.Background(),
		models.ActionSpec{Type: models.ActionChangeStatus, Config: map[string]any{"status": "won"}},
		actions.Request{Trigger: "DEAL_UPDATED", Payload: map[string]any{"id": "1"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"statusChanged": true}, result)
	assert.Equal(t, "won", got.Config["status"])
	assert.Equal(t, "DEAL_UPDATED", got.Trigger)
	assert.Equal(t, "1", got.Payload["id"])
}

func TestExecutor_HandlerErrorIsTyped(t *testing.T) {
	boom := errors.New("Team manager not found")
	handler := &stubHandler{
		actionType: models.ActionAssignToTeam,
		execute: func(context.Context, actions.Request) (map[string]any, error) {
			return nil, boom
		},
	}
	executor := newExecutor(t, time.Second, handler)

	_, err := executor.Execute(context.Background(), models.ActionSpec{Type: models.ActionAssignToTeam}, actions.Request{})
	require.Error(t, err)

	var actionErr *actions.Error
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, models.ActionAssignToTeam, actionErr.Type)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Team manager not found", err.Error())
}

func TestExecutor_SchemaValidation(t *testing.T) {
	called := false
	handler := &stubHandler{
		actionType: models.ActionAddTag,
		schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"tag": map[string]any{"type": "string", "minLength": 1}},
			"required":   []string{"tag"},
		},
		execute: func(context.Context, actions.Request) (map[string]any, error) {
			called = true
			return map[string]any{}, nil
		},
	}
	executor := newExecutor(t, time.Second, handler)

	err := executor.Validate(models.ActionSpec{Type: models.ActionAddTag})
	require.Error(t, err)
	assert.True(t, actions.IsInvalidConfig(err))
	assert.Contains(t, err.Error(), "tag")

	require.NoError(t, executor.Validate(models.ActionSpec{Type: models.ActionAddTag, Config: map[string]any{"tag": "vip"}}))
	require.NoError(t, executor.Validate(models.ActionSpec{Type: "UNKNOWN"}))

	_, err = executor.Execute(context.Background(), models.ActionSpec{Type: models.ActionAddTag}, actions.Request{})
	require.Error(t, err)
	assert.True(t, actions.IsInvalidConfig(err))
	assert.False(t, called)
}

func TestExecutor_Timeout(t *testing.T) {
	handler := &stubHandler{
		actionType: models.ActionSendEmail,
		execute: func(ctx context.Context, _ actions.Request) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	executor := newExecutor(t, 20*time.Millisecond, handler)

	_, err := executor.Execute(context.Background(), models.ActionSpec{Type: models.ActionSendEmail}, actions.Request{})
	require.Error(t, err)
	assert.True(t, actions.IsTimeout(err))
	assert.Equal(t, "action timed out", err.Error())
}

func TestExecutor_TimeoutWithStuckHandler(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	handler := &stubHandler{
		actionType: models.ActionCreateTask,
		execute: func(context.Context, actions.Request) (map[string]any, error) {
			<-release
			return nil, nil
		},
	}
	executor := newExecutor(t, 20*time.Millisecond, handler)

	start := time.Now()
	_, err := executor.Execute(context.Background(), models.ActionSpec{Type: models.ActionCreateTask}, actions.Request{})

	assert.True(t, actions.IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecutor_CancelledParent(t *testing.T) {
	handler := &stubHandler{
		actionType: models.ActionUpdateField,
		execute: func(context.Context, actions.Request) (map[string]any, error) {
			t.Fatal("handler must not run")
			return nil, nil
		},
	}
	executor := newExecutor(t, time.Second, handler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, models.ActionSpec{Type: models.ActionUpdateField}, actions.Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, actions.IsTimeout(err))
}

func TestExecutor_Panic(t *testing.T) {
	handler := &stubHandler{
		actionType: models.ActionAddTag,
		execute: func(context.Context, actions.Request) (map[string]any, error) {
			panic("nil map")
		},
	}
	executor := newExecutor(t, time.Second, handler)

	_, err := executor.Execute(context.Background(), models.ActionSpec{Type: models.ActionAddTag}, actions.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action panicked")
}

func TestExecutor_Handlers(t *testing.T) {
	noop := func(context.Context, actions.Request) (map[string]any, error) { return nil, nil }
	executor := newExecutor(t, time.Second,
		&stubHandler{actionType: models.ActionUpdateField, execute: noop},
		&stubHandler{actionType: models.ActionAddTag, execute: noop},
	)

	handlers := executor.Handlers()
	require.Len(t, handlers, 2)
	assert.Equal(t, models.ActionAddTag, handlers[0].Type())
	assert.Equal(t, models.ActionUpdateField, handlers[1].Type())

	err := executor.Register(&stubHandler{actionType: "BROKEN", schema: map[string]any{"type": 12}, execute: noop})
	require.Error(t, err)
}
