package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics recorder is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Enrollment metric attribute keys
var (
	AttrEventType    = attribute.Key("event_type")
	AttrOverridden   = attribute.Key("overridden")
	AttrDocumentType = attribute.Key("document_type")
)

// resubmissionBuckets bound the number of times one document was resubmitted
var resubmissionBuckets = []float64{1, 2, 3, 5, 8}

// EnrollmentMetrics counts workflow transitions and document resubmissions
type EnrollmentMetrics struct {
	transitions   metric.Int64Counter
	resubmissions metric.Int64Counter
	resubmitDepth metric.Int64Histogram
}

// NewEnrollmentMetrics registers the enrollment instruments on meter
func NewEnrollmentMetrics(meter metric.Meter) (*EnrollmentMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   EnrollmentMetrics
		err error
	)
	m.transitions, err = meter.Int64Counter("enrollment_transitions_total",
		metric.WithDescription("Enrollment workflow events by type"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	m.resubmissions, err = meter.Int64Counter("enrollment_document_resubmissions_total",
		metric.WithDescription("Document versions superseded by a resubmission"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, err
	}
	m.resubmitDepth, err = meter.Int64Histogram("enrollment_document_resubmission_count",
		metric.WithDescription("Resubmission counter of a document when it was resubmitted"),
		metric.WithUnit("{resubmission}"),
		metric.WithExplicitBucketBoundaries(resubmissionBuckets...),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordTransition counts one workflow event
func (m *EnrollmentMetrics) RecordTransition(ctx context.Context, eventType string, overridden bool) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(AttrEventType.String(eventType), AttrOverridden.Bool(overridden)))
}

// RecordResubmission counts one resubmitted document and records its counter
func (m *EnrollmentMetrics) RecordResubmission(ctx context.Context, documentType string, count int) {
	attrs := metric.WithAttributes(AttrDocumentType.String(documentType))
	m.resubmissions.Add(ctx, 1, attrs)
	m.resubmitDepth.Record(ctx, int64(count), attrs)
}
