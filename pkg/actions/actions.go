// Package actions dispatches workflow actions to registered handlers.
package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/autoflow/pkg/models"
)

var (
	ErrInvalidConfig = errors.New("invalid action config")
	ErrTimeout       = errors.New("action timed out")
)

// Request carries everything a handler may read.
type Request struct {
	WorkflowID  string
	ExecutionID string
	Trigger     string
	Payload     map[string]any
	Config      map[string]any
}

// Handler performs one kind of action.
type Handler interface {
	Type() models.ActionType
	Description() string
	// Schema returns the JSON schema Config is validated against.
	Schema() map[string]any
	Execute(ctx context.Context, req Request) (map[string]any, error)
}

// Error ties a handler failure to its action type. Its message is the
// underlying error's, so outcomes show what the handler reported.
type Error struct {
	Type models.ActionType
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(actionType models.ActionType, err error) *Error {
	return &Error{Type: actionType, Err: err}
}

// IsInvalidConfig reports whether err is a config validation failure.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsTimeout reports whether err is a per-action timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
