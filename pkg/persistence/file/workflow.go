package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/google/uuid"
)

const workflowsDir = "workflows"

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *Persistence
}

// FindByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) FindByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	if err := validateID(workflowID); err != nil {
		return nil, persistence.NewWorkflowError("FindByID", workflowID, err)
	}

	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	var workflow models.Workflow

	err := wr.store.read(workflowsDir, workflowID, &workflow)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewWorkflowError("FindByID", workflowID, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

// Workflows returns every stored workflow ordered by creation time.
func (wr *WorkflowRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	wr.store.mu.RLock()
	ids, err := wr.store.ids(workflowsDir)
	wr.store.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := wr.FindByID(ctx, id)
		if persistence.IsWorkflowNotFound(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// FindActiveByTrigger returns the workflows eligible for dispatch on trigger.
func (wr *WorkflowRepository) FindActiveByTrigger(ctx context.Context, trigger string) ([]*models.Workflow, error) {
	workflows, err := wr.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.Dispatchable(trigger) {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

// SaveWorkflow saves a workflow to the file system.
func (wr *WorkflowRepository) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.Must(uuid.NewV7()).String()
	}

	if err := validateID(workflow.ID); err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, fmt.Errorf("%w: %w", persistence.ErrInvalidWorkflow, err))
	}

	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return wr.store.write(workflowsDir, workflow.ID, workflow)
}
