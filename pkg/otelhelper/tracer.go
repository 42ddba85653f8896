// Package otelhelper provides tracing setup and span helpers for dispatch,
// workflow runs and actions.
package otelhelper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	WorkflowIDKey   = "autoflow.workflow.id"
	WorkflowNameKey = "autoflow.workflow.name"
	TriggerKey      = "autoflow.trigger"
	ActionTypeKey   = "autoflow.action.type"
	ActionIndexKey  = "autoflow.action.index"
	ExecutionIDKey  = "autoflow.execution.id"
	StatusKey       = "autoflow.execution.status"
	MatchedKey      = "autoflow.dispatch.matched"
	ErrorTypeKey    = "autoflow.error.type"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// NewTracer returns an OTLP/HTTP backed tracer, or a no-op tracer when
// disabled. The exporter reads the standard OTEL_EXPORTER_OTLP_* variables.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string, enabled bool) (trace.Tracer, ShutdownFunc, error) {
	if !enabled {
		return Noop(), func(context.Context) error { return nil }, nil
	}

	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// Noop returns a tracer that records nothing.
//
// nolint:ireturn
func Noop() trace.Tracer {
	return noop.NewTracerProvider().Tracer("")
}

// SetError marks span as failed with err and sets attrs on it.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(append(attrs, attribute.String(ErrorTypeKey, fmt.Sprintf("%T", err)))...)
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}
