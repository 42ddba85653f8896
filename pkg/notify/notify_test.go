package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/events"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/mocks"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func closedRecord(status models.ExecutionStatus, result map[string]any, errorMessage string) *models.ExecutionRecord {
	started := time.Now().Add(-time.Second)
	record := &models.ExecutionRecord{ID: "exec-1", WorkflowID: "wf-1", Status: models.ExecutionStatusRunning, StartedAt: started}
	record.Close(status, result, errorMessage, time.Now())

	return record
}

func TestNotifier_Succeeded(t *testing.T) {
	activities := &mocks.MockActivityStore{}
	bus := &mocks.MockEventBus{}
	notifier := notify.New(log.Discard(), activities, bus)

	workflow := &models.Workflow{ID: "wf-1", Name: "Web leads", OwnerID: "7"}
	record := closedRecord(models.ExecutionStatusSuccess, map[string]any{
		"actionResults": []models.ActionOutcome{{Type: models.ActionAddTag, Success: true}},
	}, "")

	activities.On("CreateActivity", mock.Anything, mock.MatchedBy(func(a *models.Activity) bool {
		return a.Type == models.ActivityWorkflowExecuted &&
			a.ExecutionID == "exec-1" &&
			a.UserID == "7" &&
			a.Description == `Workflow "Web leads" executed successfully`
	})).Return(nil).Once()

	bus.On("Publish", mock.Anything, "7", mock.MatchedBy(func(e *events.UserNotification) bool {
		return e.UserID == "7" && e.Message == `Workflow "Web leads" executed successfully`
	})).Return(nil).Once()

	bus.On("Publish", mock.Anything, "wf-1", mock.MatchedBy(func(e *events.WorkflowExecutionCompleted) bool {
		return e.ExecutionID == "exec-1" && len(e.ActionResults) == 1
	})).Return(nil).Once()

	require.NoError(t, notifier.ExecutionSucceeded(context.Background(), workflow, record))

	activities.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestNotifier_FailedWithoutWorkflow(t *testing.T) {
	activities := &mocks.MockActivityStore{}
	bus := &mocks.MockEventBus{}
	notifier := notify.New(log.Discard(), activities, bus)

	record := closedRecord(models.ExecutionStatusFailed, nil, "workflow not found")

	activities.On("CreateActivity", mock.Anything, mock.MatchedBy(func(a *models.Activity) bool {
		return a.Type == models.ActivityWorkflowFailed && a.Description == `Workflow "wf-1" failed: workflow not found`
	})).Return(nil).Once()

	bus.On("Publish", mock.Anything, "wf-1", mock.AnythingOfType("*events.WorkflowExecutionFailed")).Return(nil).Once()

	require.NoError(t, notifier.ExecutionFailed(context.Background(), nil, record))

	activities.AssertExpectations(t)
	bus.AssertExpectations(t)
	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestNotifier_Skipped(t *testing.T) {
	activities := &mocks.MockActivityStore{}
	bus := &mocks.MockEventBus{}
	notifier := notify.New(log.Discard(), activities, bus)

	record := closedRecord(models.ExecutionStatusSkipped, map[string]any{"reason": "Conditions not met"}, "")

	bus.On("Publish", mock.Anything, "wf-1", mock.MatchedBy(func(e *events.WorkflowExecutionSkipped) bool {
		return e.Reason == "Conditions not met"
	})).Return(nil).Once()

	require.NoError(t, notifier.ExecutionSkipped(context.Background(), &models.Workflow{ID: "wf-1", OwnerID: "7"}, record))

	activities.AssertNotCalled(t, "CreateActivity", mock.Anything, mock.Anything)
	bus.AssertExpectations(t)
}

func TestNotifier_ContinuesAfterFailure(t *testing.T) {
	activities := &mocks.MockActivityStore{}
	bus := &mocks.MockEventBus{}
	notifier := notify.New(log.Discard(), activities, bus)

	activities.On("CreateActivity", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	record := closedRecord(models.ExecutionStatusSuccess, nil, "")
	err := notifier.ExecutionSucceeded(context.Background(), &models.Workflow{ID: "wf-1", Name: "n", OwnerID: "7"}, record)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	bus.AssertNumberOfCalls(t, "Publish", 2)
}

func TestNotifier_NilChannels(t *testing.T) {
	notifier := notify.New(log.Discard(), nil, nil)
	record := closedRecord(models.ExecutionStatusSuccess, nil, "")

	assert.NoError(t, notifier.ExecutionSucceeded(context.Background(), &models.Workflow{OwnerID: "1"}, record))
	assert.NoError(t, notifier.ExecutionFailed(context.Background(), nil, record))
	assert.NoError(t, notifier.ExecutionSkipped(context.Background(), nil, record))
}
