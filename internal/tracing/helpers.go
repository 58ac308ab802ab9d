package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for spans started here.
const TracerName = "newsbias"

// DBSystem identifies the backing store of a traced call.
type DBSystem string

const (
	DBSystemMongoDB    DBSystem = "mongodb"
	DBSystemPostgreSQL DBSystem = "postgresql"
	DBSystemRedis      DBSystem = "redis"
	DBSystemS3         DBSystem = "s3"
)

// DBOperation represents the type of read being traced.
type DBOperation string

const (
	// DBOperationFind is a multi-document read.
	DBOperationFind DBOperation = "find"
	// DBOperationGet is a single keyed read.
	DBOperationGet DBOperation = "get"
	// DBOperationCount counts matching documents.
	DBOperationCount DBOperation = "count"
	// DBOperationAggregate runs a grouping pipeline.
	DBOperationAggregate DBOperation = "aggregate"
	// DBOperationSet writes a cache entry.
	DBOperationSet DBOperation = "set"
)

// StartDBSpan creates a client span for a store call.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartDBSpan(ctx, tracing.DBSystemMongoDB, "clusters", tracing.DBOperationFind)
//	defer func() { endSpan(err) }()
func StartDBSpan(ctx context.Context, system DBSystem, collection string, operation DBOperation) (context.Context, func(error)) {
	tracer := otel.Tracer(TracerName + "/db")

	spanName := string(operation)
	if collection != "" {
		spanName = spanName + " " + collection
	}

	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", string(system)),
			attribute.String("db.operation", string(operation)),
		),
	)

	if collection != "" {
		span.SetAttributes(attribute.String("db.collection.name", collection))
	}

	return ctx, endFunc(span)
}

// StartSpan creates a new span for a general operation.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartSpan(ctx, "news.list_clusters")
//	defer func() { endSpan(err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, endFunc(span)
}

func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
