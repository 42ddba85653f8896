package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/actions/crmactions"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/web"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app   *fiber.App
	store *file.Persistence
	crm   *crm.MemoryStore
}

type failingHealth struct{}

func (failingHealth) HealthCheck(context.Context) error { return errors.New("disk unavailable") }

func setupTestApp(t *testing.T, health web.HealthChecker) *testServer {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	crmStore := crm.NewMemoryStore()
	crmStore.Put(crm.KindLead, "42", crm.Record{Status: "new"})

	executor := actions.NewExecutor(log.Discard(), nil, time.Second)
	require.NoError(t, crmactions.Register(executor, crmStore.Collaborators()))

	evaluator := conditions.NewEvaluator(log.Discard())
	runner := workflow.NewRunner(log.Discard(), store, store, evaluator,
		workflow.NewPipeline(log.Discard(), executor, nil), workflow.RunnerConfig{})
	dispatcher := workflow.NewDispatcher(log.Discard(), store, runner, nil, nil)

	if health == nil {
		health = store
	}

	handlers := web.NewAPIHandlers(log.Discard(), dispatcher, store, store,
		workflow.NewDefinitionValidator(executor, evaluator), health,
		validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return &testServer{app: app, store: store, crm: crmStore}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func (s *testServer) seed(t *testing.T, workflow *models.Workflow) {
	t.Helper()

	require.NoError(t, s.store.SaveWorkflow(context.Background(), workflow))
}

func webLeads(id string) *models.Workflow {
	return &models.Workflow{
		ID:          id,
		Name:        "Assign web leads",
		IsActive:    true,
		TriggerName: "LEAD_CREATED",
		Conditions: &models.ConditionGroup{
			Logic:      models.LogicAnd,
			Conditions: []models.Condition{{Field: "source", Operator: models.OperatorEquals, Value: "web"}},
		},
		Actions: []models.ActionSpec{{Type: models.ActionAssignToUser, Config: map[string]any{"userId": 7}}},
	}
}

func TestAPIHandlers_DispatchTrigger(t *testing.T) {
	server := setupTestApp(t, nil)
	server.seed(t, webLeads("wf-1"))

	resp, body := server.do(t, http.MethodPost, "/triggers/LEAD_CREATED", map[string]any{"id": 42, "source": "web"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result web.DispatchResponse
	require.NoError(t, json.Unmarshal(body, &result))

	assert.Equal(t, "LEAD_CREATED", result.Trigger)
	assert.Equal(t, 1, result.Matched)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, models.ExecutionStatusSuccess, result.Outcomes[0].Status)
	require.Len(t, result.Outcomes[0].Results, 1)
	assert.Equal(t, true, result.Outcomes[0].Results[0].Result["assigned"])

	lead, _ := server.crm.Get(crm.KindLead, "42")
	assert.Equal(t, "7", lead.AssignedTo)
}

func TestAPIHandlers_DispatchTrigger_Skipped(t *testing.T) {
	server := setupTestApp(t, nil)
	server.seed(t, webLeads("wf-1"))

	resp, body := server.do(t, http.MethodPost, "/triggers/LEAD_CREATED", map[string]any{"id": 42, "source": "referral"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.DispatchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, models.ExecutionStatusSkipped, result.Outcomes[0].Status)
	assert.Equal(t, "Conditions not met", result.Outcomes[0].Reason)
}

func TestAPIHandlers_DispatchTrigger_NoBody(t *testing.T) {
	server := setupTestApp(t, nil)

	resp, body := server.do(t, http.MethodPost, "/triggers/NOTHING", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.DispatchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 0, result.Matched)
	assert.Empty(t, result.Outcomes)
}

func TestAPIHandlers_DispatchTrigger_InvalidBody(t *testing.T) {
	server := setupTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/triggers/LEAD_CREATED", bytes.NewBufferString("[1,2]"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		request        web.CreateWorkflowRequest
		expectedStatus int
		expectedError  string
	}{
		{
			name: "successful creation",
			request: web.CreateWorkflowRequest{
				Name:        "Tag hot deals",
				TriggerName: "DEAL_CREATED",
				Actions:     []models.ActionSpec{{Type: models.ActionAddTag, Config: map[string]any{"tag": "hot"}}},
				OwnerID:     "7",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing trigger",
			request: web.CreateWorkflowRequest{
				Name:    "Tag hot deals",
				Actions: []models.ActionSpec{{Type: models.ActionAddTag, Config: map[string]any{"tag": "hot"}}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "TriggerName",
		},
		{
			name: "action config rejected by schema",
			request: web.CreateWorkflowRequest{
				Name:        "Tag hot deals",
				TriggerName: "DEAL_CREATED",
				Actions:     []models.ActionSpec{{Type: models.ActionAddTag}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid action config",
		},
		{
			name: "unknown action type",
			request: web.CreateWorkflowRequest{
				Name:        "Tag hot deals",
				TriggerName: "DEAL_CREATED",
				Actions:     []models.ActionSpec{{Type: "SEND_SMS"}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "unknown action type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestApp(t, nil)

			resp, body := server.do(t, http.MethodPost, "/workflows", tt.request)
			require.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedError != "" {
				assert.Contains(t, string(body), tt.expectedError)

				return
			}

			var created models.Workflow
			require.NoError(t, json.Unmarshal(body, &created))
			assert.NotEmpty(t, created.ID)
			assert.True(t, created.IsActive)

			stored, err := server.store.FindByID(context.Background(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, "7", stored.OwnerID)
		})
	}
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	server := setupTestApp(t, nil)
	server.seed(t, webLeads("wf-1"))

	resp, body := server.do(t, http.MethodGet, "/workflows/wf-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, "Assign web leads", workflow.Name)

	resp, body = server.do(t, http.MethodGet, "/workflows/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "workflow_not_found")
}

func TestAPIHandlers_GetWorkflows(t *testing.T) {
	server := setupTestApp(t, nil)
	server.seed(t, webLeads("wf-1"))
	server.seed(t, webLeads("wf-2"))

	resp, body := server.do(t, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflows []models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflows))
	assert.Len(t, workflows, 2)
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	server := setupTestApp(t, nil)
	server.seed(t, webLeads("wf-1"))

	resp, _ := server.do(t, http.MethodDelete, "/workflows/wf-1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	stored, err := server.store.FindByID(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.NotNil(t, stored.DeletedAt)

	resp, body := server.do(t, http.MethodPost, "/triggers/LEAD_CREATED", map[string]any{"id": 42, "source": "web"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.DispatchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 0, result.Matched)

	resp, _ = server.do(t, http.MethodDelete, "/workflows/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetWorkflowExecutions(t *testing.T) {
	server := setupTestApp(t, nil)
	server.seed(t, webLeads("wf-1"))

	for _, source := range []string{"web", "referral", "web"} {
		resp, _ := server.do(t, http.MethodPost, "/triggers/LEAD_CREATED", map[string]any{"id": 42, "source": source})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := server.do(t, http.MethodGet, "/workflows/wf-1/executions?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history web.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Equal(t, 2, history.Limit)
	require.Len(t, history.Executions, 2)

	for _, record := range history.Executions {
		assert.True(t, record.Status.Terminal())
		assert.NotNil(t, record.CompletedAt)
	}

	resp, body = server.do(t, http.MethodGet, "/executions/"+history.Executions[0].ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.ExecutionRecord
	require.NoError(t, json.Unmarshal(body, &record))
	assert.Equal(t, history.Executions[0].ID, record.ID)

	resp, _ = server.do(t, http.MethodGet, "/workflows/wf-1/executions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = server.do(t, http.MethodGet, "/executions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetWorkflowExecutions_DefaultLimit(t *testing.T) {
	server := setupTestApp(t, nil)

	resp, body := server.do(t, http.MethodGet, "/workflows/wf-1/executions?limit=500", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history web.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Equal(t, 100, history.Limit)
	assert.Empty(t, history.Executions)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	resp, body := setupTestApp(t, nil).do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"healthy"`)

	resp, body = setupTestApp(t, failingHealth{}).do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "disk unavailable")
}
