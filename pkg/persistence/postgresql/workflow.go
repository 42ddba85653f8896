package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
)

const workflowColumns = `
	id
  , name
  , description
  , is_active
  , trigger_name
  , conditions
  , actions
  , COALESCE(owner_id, '')
  , created_at
  , updated_at
  , deleted_at
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// FindActiveByTrigger returns the workflows eligible for dispatch on trigger.
func (r *WorkflowRepository) FindActiveByTrigger(ctx context.Context, trigger string) ([]*models.Workflow, error) {
	return r.query(ctx, `SELECT `+workflowColumns+` FROM workflows
		WHERE trigger_name = $1 AND is_active AND deleted_at IS NULL
		ORDER BY created_at`, trigger)
}

// Workflows returns all workflows, including inactive and deleted ones.
func (r *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return r.query(ctx, `SELECT `+workflowColumns+` FROM workflows ORDER BY created_at`)
}

func (r *WorkflowRepository) FindByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("FindByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("FindByID", id, err)
	}

	return workflow, nil
}

// SaveWorkflow upserts a workflow.
func (r *WorkflowRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	conditions, err := toJSON(workflow.Conditions)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	actionList := workflow.Actions
	if actionList == nil {
		actionList = []models.ActionSpec{}
	}

	actionsJSON, err := toJSON(actionList)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, is_active, trigger_name, conditions, actions, owner_id, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , is_active = EXCLUDED.is_active
		  , trigger_name = EXCLUDED.trigger_name
		  , conditions = EXCLUDED.conditions
		  , actions = EXCLUDED.actions
		  , owner_id = EXCLUDED.owner_id
		  , updated_at = EXCLUDED.updated_at
		  , deleted_at = EXCLUDED.deleted_at
	`,
		workflow.ID, workflow.Name, workflow.Description, workflow.IsActive, workflow.TriggerName,
		conditions, actionsJSON, workflow.OwnerID, workflow.CreatedAt, workflow.UpdatedAt, workflow.DeletedAt)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow    models.Workflow
		conditions  []byte
		actionsJSON []byte
		deletedAt   sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.IsActive,
		&workflow.TriggerName,
		&conditions,
		&actionsJSON,
		&workflow.OwnerID,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(conditions) > 0 {
		workflow.Conditions = &models.ConditionGroup{}
		if err := fromJSON(conditions, workflow.Conditions); err != nil {
			return nil, err
		}
	}

	if err := fromJSON(actionsJSON, &workflow.Actions); err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		workflow.DeletedAt = &deletedAt.Time
	}

	return &workflow, nil
}
