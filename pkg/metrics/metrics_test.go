package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveDispatch(t *testing.T) {
	m := New()

	m.ObserveDispatch("LEAD_CREATED", 2)
	m.ObserveDispatch("LEAD_CREATED", 0)
	m.ObserveDispatch("DEAL_WON", 1)

	assert.InDelta(t, 2, testutil.ToFloat64(m.dispatches.WithLabelValues("LEAD_CREATED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dispatches.WithLabelValues("DEAL_WON")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.matchedWorkflows))
}

func TestMetrics_ObserveExecution(t *testing.T) {
	m := New()

	m.ObserveExecution(models.ExecutionStatusSuccess, 120*time.Millisecond)
	m.ObserveExecution(models.ExecutionStatusSkipped, time.Millisecond)
	m.ObserveExecution(models.ExecutionStatusSuccess, 80*time.Millisecond)

	expected := `
# HELP autoflow_workflow_executions_total Closed workflow executions by terminal status.
# TYPE autoflow_workflow_executions_total counter
autoflow_workflow_executions_total{status="SKIPPED"} 1
autoflow_workflow_executions_total{status="SUCCESS"} 2
`
	require.NoError(t, testutil.CollectAndCompare(m.executions, strings.NewReader(expected)))
}

func TestMetrics_ObserveAction(t *testing.T) {
	m := New()

	m.ObserveAction(models.ActionAddTag, true, time.Millisecond)
	m.ObserveAction(models.ActionAssignToTeam, false, time.Millisecond)
	m.ObserveAction(models.ActionAssignToTeam, false, time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.actions.WithLabelValues("ADD_TAG", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.actions.WithLabelValues("ASSIGN_TO_TEAM", "failure")), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveDispatch("LEAD_CREATED", 1)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `autoflow_trigger_dispatches_total{trigger="LEAD_CREATED"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
