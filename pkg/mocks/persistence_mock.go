package mocks

import (
	"context"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowStore is a mock implementation of persistence.WorkflowStore.
type MockWorkflowStore struct {
	mock.Mock
}

func (m *MockWorkflowStore) FindActiveByTrigger(ctx context.Context, trigger string) ([]*models.Workflow, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowStore) FindByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowStore) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowStore) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

// MockActivityStore is a mock implementation of persistence.ActivityStore.
type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	args := m.Called(ctx, activity)

	return args.Error(0)
}
