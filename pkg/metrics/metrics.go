// Package metrics exports dispatch, execution and action measurements to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "autoflow"

// Metrics implements workflow.Observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	dispatches        *prometheus.CounterVec
	matchedWorkflows  *prometheus.HistogramVec
	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	actions           *prometheus.CounterVec
	actionDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "trigger_dispatches_total",
			Help:      "Trigger events dispatched.",
		}, []string{"trigger"}),
		matchedWorkflows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "trigger_matched_workflows",
			Help:      "Workflows matched per dispatched trigger.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}, []string{"trigger"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "workflow_executions_total",
			Help:      "Closed workflow executions by terminal status.",
		}, []string{"status"}),
		executionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "workflow_execution_duration_seconds",
			Help:      "Wall time from execution start to close.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "actions_total",
			Help:      "Executed actions by type and result.",
		}, []string{"type", "result"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "action_duration_seconds",
			Help:      "Action execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.dispatches,
		m.matchedWorkflows,
		m.executions,
		m.executionDuration,
		m.actions,
		m.actionDuration,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveDispatch(trigger string, matched int) {
	m.dispatches.WithLabelValues(trigger).Inc()
	m.matchedWorkflows.WithLabelValues(trigger).Observe(float64(matched))
}

func (m *Metrics) ObserveExecution(status models.ExecutionStatus, duration time.Duration) {
	m.executions.WithLabelValues(string(status)).Inc()
	m.executionDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

func (m *Metrics) ObserveAction(actionType models.ActionType, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}

	m.actions.WithLabelValues(string(actionType), result).Inc()
	m.actionDuration.WithLabelValues(string(actionType)).Observe(duration.Seconds())
}
