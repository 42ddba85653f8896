package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/autoflow/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := otelhelper.StartSpan(context.Background(), tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, "wf-1"))
	otelhelper.SetError(span, errors.New("boom"), attribute.String(otelhelper.ExecutionIDKey, "ex-1"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "workflow.run", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.WorkflowIDKey, "wf-1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.ExecutionIDKey, "ex-1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.ErrorTypeKey, "*errors.errorString"))
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestNewTracer_Disabled(t *testing.T) {
	tracer, shutdown, err := otelhelper.NewTracer(context.Background(), "autoflow-test", false)
	require.NoError(t, err)
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(context.Background()))
}
