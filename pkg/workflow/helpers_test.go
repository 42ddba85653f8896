package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/actions/crmactions"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engine struct {
	store    *file.Persistence
	crm      *crm.MemoryStore
	pipeline *workflow.Pipeline
	runner   *workflow.Runner
}

func newEngine(t *testing.T, config workflow.RunnerConfig) *engine {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	crmStore := crm.NewMemoryStore()
	crmStore.Put(crm.KindLead, "42", crm.Record{Status: "new"})
	crmStore.SetManager("sales", "99")

	executor := actions.NewExecutor(log.Discard(), nil, time.Second)
	require.NoError(t, crmactions.Register(executor, crmStore.Collaborators()))

	pipeline := workflow.NewPipeline(log.Discard(), executor, nil)
	runner := workflow.NewRunner(log.Discard(), store, store, conditions.NewEvaluator(log.Discard()), pipeline, config)

	return &engine{store: store, crm: crmStore, pipeline: pipeline, runner: runner}
}

// runnerWith builds a runner over the engine's pipeline with other stores.
func (e *engine) runnerWith(workflows persistence.WorkflowStore, executions persistence.ExecutionStore, config workflow.RunnerConfig) *workflow.Runner {
	return workflow.NewRunner(log.Discard(), workflows, executions, conditions.NewEvaluator(log.Discard()), e.pipeline, config)
}

func (e *engine) save(t *testing.T, workflow *models.Workflow) {
	t.Helper()

	require.NoError(t, e.store.SaveWorkflow(context.Background(), workflow))
}

func webLeadWorkflow(id string, actionSpecs ...models.ActionSpec) *models.Workflow {
	if len(actionSpecs) == 0 {
		actionSpecs = []models.ActionSpec{{Type: models.ActionAssignToUser, Config: map[string]any{"userId": 7}}}
	}

	return &models.Workflow{
		ID:          id,
		Name:        "Assign web leads",
		IsActive:    true,
		TriggerName: "LEAD_CREATED",
		Conditions: &models.ConditionGroup{
			Logic:      models.LogicAnd,
			Conditions: []models.Condition{{Field: "source", Operator: models.OperatorEquals, Value: "web"}},
		},
		Actions: actionSpecs,
	}
}

// assertSingleTerminalRecord checks that exactly one closed record exists for
// the workflow and returns it.
func assertSingleTerminalRecord(t *testing.T, store persistence.ExecutionStore, workflowID string) *models.ExecutionRecord {
	t.Helper()

	records, err := store.ExecutionsByWorkflow(context.Background(), workflowID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.True(t, record.Status.Terminal(), "status %s", record.Status)
	assert.NotNil(t, record.CompletedAt)

	return record
}

// brokenLookups fails FindByID for the listed workflow ids.
type brokenLookups struct {
	persistence.WorkflowStore

	broken map[string]bool
}

func (b *brokenLookups) FindByID(ctx context.Context, id string) (*models.Workflow, error) {
	if b.broken[id] {
		return nil, errors.New("connection reset")
	}

	return b.WorkflowStore.FindByID(ctx, id)
}

// panickingLookups panics in FindByID.
type panickingLookups struct {
	persistence.WorkflowStore
}

func (panickingLookups) FindByID(context.Context, string) (*models.Workflow, error) {
	panic("driver: bad connection state")
}

// rejectedCreates fails every CreateExecution and delegates the rest.
type rejectedCreates struct {
	persistence.ExecutionStore
}

func (rejectedCreates) CreateExecution(context.Context, *models.ExecutionRecord) error {
	return errors.New("insert failed")
}

type recordingObserver struct {
	mu         sync.Mutex
	dispatches map[string]int
	executions []models.ExecutionStatus
	actions    []bool
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{dispatches: map[string]int{}}
}

func (o *recordingObserver) ObserveDispatch(trigger string, matched int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.dispatches[trigger] = matched
}

func (o *recordingObserver) ObserveExecution(status models.ExecutionStatus, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.executions = append(o.executions, status)
}

func (o *recordingObserver) ObserveAction(_ models.ActionType, success bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.actions = append(o.actions, success)
}
