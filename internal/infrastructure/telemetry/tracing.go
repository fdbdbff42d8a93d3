package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the enrollment business spans
const TracerName = "github.com/schoolops/enrollment"

// Span attributes of enrollment operations
const (
	ApplicationIDKey = attribute.Key("enrollment.application_id")
	DocumentIDKey    = attribute.Key("enrollment.document_id")
	StatusKey        = attribute.Key("enrollment.status")
	ReviewerIDKey    = attribute.Key("enrollment.reviewer_id")
	StudentIDKey     = attribute.Key("enrollment.student_id")
	ReadinessKey     = attribute.Key("enrollment.payment_readiness")
	ReplayedKey      = attribute.Key("enrollment.replayed")
)

// ApplicationID tags a span with the application it works on
func ApplicationID(id uuid.UUID) attribute.KeyValue {
	return ApplicationIDKey.String(id.String())
}

// StartSpan starts an internal span on the enrollment tracer.
// Finish it with EndSpan.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan ends span, marking it failed when err is non-nil.
// Meant for a deferred call with a named error result.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	span.End()
}
