// Package telemetry wraps one OTel span per operation. No OTLP
// collector is in scope here (see DESIGN.md), so Configure installs a
// local, non-exporting tracer provider; the instrumentation call site
// (cmdutil.RunOperation in cmd/portofcall) is the same whether or not a
// real collector is ever attached.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/pocc/portofcall-sub006"

// Configure installs an in-process (non-exporting) tracer provider and
// returns its Shutdown func for the caller to defer.
func Configure() func(context.Context) error {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// StartOperation starts a span named "<protocol>.<operation>" and
// returns the derived context plus an end func the caller defers,
// passing the operation's terminal error (if any) so it's recorded on
// the span before it closes.
func StartOperation(ctx context.Context, protocol, operation string) (context.Context, func(err error)) {
	tracer := otel.Tracer(instrumentationName)
	ctx, span := tracer.Start(ctx, protocol+"."+operation, trace.WithAttributes(
		attribute.String("protocol", protocol),
		attribute.String("operation", operation),
	))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
