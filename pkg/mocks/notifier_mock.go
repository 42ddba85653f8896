package mocks

import (
	"context"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of workflow.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ExecutionSucceeded(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error {
	args := m.Called(ctx, workflow, record)

	return args.Error(0)
}

func (m *MockNotifier) ExecutionFailed(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error {
	args := m.Called(ctx, workflow, record)

	return args.Error(0)
}

func (m *MockNotifier) ExecutionSkipped(ctx context.Context, workflow *models.Workflow, record *models.ExecutionRecord) error {
	args := m.Called(ctx, workflow, record)

	return args.Error(0)
}
