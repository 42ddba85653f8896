// Package persistence provides the storage contracts for workflow
// definitions, execution records and activity entries.
package persistence

import (
	"context"

	"github.com/dukex/autoflow/pkg/models"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// WorkflowStore reads workflow definitions. SaveWorkflow exists for seeding
// and tooling; the engine never writes definitions.
type WorkflowStore interface {
	// FindActiveByTrigger returns active, non-deleted workflows for trigger.
	FindActiveByTrigger(ctx context.Context, trigger string) ([]*models.Workflow, error)
	// FindByID returns ErrWorkflowNotFound when the id is unknown.
	FindByID(ctx context.Context, id string) (*models.Workflow, error)
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
}

// ExecutionStore persists execution records.
type ExecutionStore interface {
	// CreateExecution stores a new RUNNING record.
	CreateExecution(ctx context.Context, record *models.ExecutionRecord) error
	// CompleteExecution stores the terminal state of a record, inserting it
	// when no RUNNING row was stored. A record that is already terminal is
	// rejected with ErrExecutionAlreadyCompleted.
	CompleteExecution(ctx context.Context, record *models.ExecutionRecord) error
	ExecutionByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	// ExecutionsByWorkflow lists records most recent first, at most limit.
	ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error)
}

type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
}

// Persistence is the full storage backend.
type Persistence interface {
	WorkflowStore
	ExecutionStore
	ActivityStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ClampLimit normalizes a history page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
