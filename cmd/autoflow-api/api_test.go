package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/cmd"
	"github.com/dukex/autoflow/pkg/crm"
	"github.com/dukex/autoflow/pkg/log"
	"github.com/dukex/autoflow/pkg/metrics"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence/file"
	"github.com/dukex/autoflow/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	observer := metrics.New()

	memory := crm.NewMemoryStore()
	memory.Put(crm.KindLead, "42", crm.Record{})

	engine, err := cmd.NewEngine(log.Discard(), cmd.EngineConfig{
		Persistence:     store,
		Collaborators:   memory.Collaborators(),
		Observer:        observer,
		ActionTimeout:   time.Second,
		WorkflowTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	runtime := &cmd.Runtime{Persistence: store, Metrics: observer, Engine: engine}

	return NewAPI(log.Discard(), runtime).App(), store
}

func read(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return body
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Autoflow API", string(read(t, resp)))
}

func TestAPI_Liveness(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(read(t, resp)))
}

func TestAPI_DispatchThenMetrics(t *testing.T) {
	app, store := setupTestApp(t)

	require.NoError(t, store.SaveWorkflow(context.Background(), &models.Workflow{
		ID:          "wf-1",
		Name:        "Qualify leads",
		IsActive:    true,
		TriggerName: "LEAD_CREATED",
		Actions:     []models.ActionSpec{{Type: models.ActionChangeStatus, Config: map[string]any{"status": "qualified"}}},
	}))

	req := httptest.NewRequest(http.MethodPost, "/triggers/LEAD_CREATED", bytes.NewBufferString(`{"id":"42"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dispatched web.DispatchResponse
	require.NoError(t, json.Unmarshal(read(t, resp), &dispatched))
	require.Len(t, dispatched.Outcomes, 1)
	assert.Equal(t, models.ExecutionStatusSuccess, dispatched.Outcomes[0].Status)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := string(read(t, resp))
	assert.Contains(t, body, `autoflow_workflow_executions_total{status="SUCCESS"} 1`)
	assert.Contains(t, body, `autoflow_actions_total{result="success",type="CHANGE_STATUS"} 1`)
}
