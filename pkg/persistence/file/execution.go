package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
)

const executionsDir = "executions"

// ExecutionRepository handles execution record file operations.
type ExecutionRepository struct {
	store *Persistence
}

func (er *ExecutionRepository) CreateExecution(_ context.Context, record *models.ExecutionRecord) error {
	if err := validateID(record.ID); err != nil {
		return persistence.NewExecutionError("CreateExecution", record.ID, err)
	}

	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	if _, err := os.Stat(er.store.path(executionsDir, record.ID)); err == nil {
		return persistence.NewExecutionError("CreateExecution", record.ID, persistence.ErrExecutionAlreadyExists)
	}

	return er.store.write(executionsDir, record.ID, record)
}

func (er *ExecutionRepository) CompleteExecution(_ context.Context, record *models.ExecutionRecord) error {
	if err := validateID(record.ID); err != nil {
		return persistence.NewExecutionError("CompleteExecution", record.ID, err)
	}

	if !record.Status.Terminal() {
		return persistence.NewExecutionError("CompleteExecution", record.ID, persistence.ErrExecutionNotTerminal)
	}

	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	var stored models.ExecutionRecord

	err := er.store.read(executionsDir, record.ID, &stored)
	if errors.Is(err, os.ErrNotExist) {
		return er.store.write(executionsDir, record.ID, record)
	}

	if err != nil {
		return fmt.Errorf("failed to read execution %s: %w", record.ID, err)
	}

	if stored.Status.Terminal() {
		return persistence.NewExecutionError("CompleteExecution", record.ID, persistence.ErrExecutionAlreadyCompleted)
	}

	return er.store.write(executionsDir, record.ID, record)
}

func (er *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.ExecutionRecord, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	var record models.ExecutionRecord

	err := er.store.read(executionsDir, id, &record)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	return &record, nil
}

// ExecutionsByWorkflow scans every record; the file backend is meant for
// development volumes.
func (er *ExecutionRepository) ExecutionsByWorkflow(_ context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	limit = persistence.ClampLimit(limit)

	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	ids, err := er.store.ids(executionsDir)
	if err != nil {
		return nil, err
	}

	records := make([]*models.ExecutionRecord, 0)

	for _, id := range ids {
		var record models.ExecutionRecord

		err := er.store.read(executionsDir, id, &record)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
		}

		if record.WorkflowID == workflowID {
			records = append(records, &record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
