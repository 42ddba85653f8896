package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// ExecutionRepository stores execution records.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, record *models.ExecutionRecord) error {
	triggerPayload, err := toJSON(record.TriggerPayload)
	if err != nil {
		return persistence.NewExecutionError("CreateExecution", record.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (id, workflow_id, trigger_payload, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		record.ID, record.WorkflowID, triggerPayload, string(record.Status), record.StartedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return persistence.NewExecutionError("CreateExecution", record.ID, persistence.ErrExecutionAlreadyExists)
	}

	if err != nil {
		return persistence.NewExecutionError("CreateExecution", record.ID, err)
	}

	return nil
}

// CompleteExecution inserts the terminal row, or overwrites a row that is
// still RUNNING. A row already terminal is left untouched and reported as
// ErrExecutionAlreadyCompleted.
func (r *ExecutionRepository) CompleteExecution(ctx context.Context, record *models.ExecutionRecord) error {
	if !record.Status.Terminal() {
		return persistence.NewExecutionError("CompleteExecution", record.ID, persistence.ErrExecutionNotTerminal)
	}

	triggerPayload, err := toJSON(record.TriggerPayload)
	if err != nil {
		return persistence.NewExecutionError("CompleteExecution", record.ID, err)
	}

	result, err := toJSON(record.Result)
	if err != nil {
		return persistence.NewExecutionError("CompleteExecution", record.ID, err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions
			(id, workflow_id, trigger_payload, status, started_at, completed_at, duration_ms, result, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status
		  , completed_at = EXCLUDED.completed_at
		  , duration_ms = EXCLUDED.duration_ms
		  , result = EXCLUDED.result
		  , error_message = EXCLUDED.error_message
		WHERE workflow_executions.status = 'RUNNING'`,
		record.ID, record.WorkflowID, triggerPayload, string(record.Status), record.StartedAt,
		record.CompletedAt, record.DurationMs, result, record.ErrorMessage)
	if err != nil {
		return persistence.NewExecutionError("CompleteExecution", record.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return persistence.NewExecutionError("CompleteExecution", record.ID, persistence.ErrExecutionAlreadyCompleted)
	}

	return nil
}

const executionColumns = `
	id
  , workflow_id
  , trigger_payload
  , status
  , started_at
  , completed_at
  , duration_ms
  , result
  , COALESCE(error_message, '')
`

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM workflow_executions WHERE id = $1`, id)

	record, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return record, nil
}

func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+executionColumns+` FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, workflowID, persistence.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return records, nil
}

func scanExecution(row scanner) (*models.ExecutionRecord, error) {
	var (
		record         models.ExecutionRecord
		status         string
		triggerPayload []byte
		result         []byte
		completedAt    sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.WorkflowID,
		&triggerPayload,
		&status,
		&record.StartedAt,
		&completedAt,
		&record.DurationMs,
		&result,
		&record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	record.Status = models.ExecutionStatus(status)

	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}

	if err := fromJSON(triggerPayload, &record.TriggerPayload); err != nil {
		return nil, err
	}

	if err := fromJSON(result, &record.Result); err != nil {
		return nil, err
	}

	return &record, nil
}
