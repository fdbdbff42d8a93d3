package enrollment

import (
	"context"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"go.uber.org/zap"
)

// AllEventTypes lists every event raised by the enrollment workflow
var AllEventTypes = []string{
	enrollment.EventTypeApplicationCreated,
	enrollment.EventTypeReviewStarted,
	enrollment.EventTypeApplicationVerified,
	enrollment.EventTypeApplicationApproved,
	enrollment.EventTypeStudentProvisioned,
	enrollment.EventTypeApplicationRejected,
	enrollment.EventTypeProfileUpdated,
	enrollment.EventTypeDocumentVerified,
	enrollment.EventTypeDocumentRejected,
	enrollment.EventTypeDocumentResubmitted,
	enrollment.EventTypeDocumentUploaded,
	enrollment.EventTypeResubmissionRequested,
}

// AuditLogHandler writes one structured audit line per workflow event
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditLogHandler) EventTypes() []string {
	return AllEventTypes
}

// Handle logs the event with the fields relevant to its type
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	if a, ok := event.(interface{ Actor() string }); ok && a.Actor() != "" {
		fields = append(fields, zap.String("actor", a.Actor()))
	}

	switch e := event.(type) {
	case *enrollment.ApplicationCreatedEvent:
		fields = append(fields,
			zap.String("confirmation_code", e.ConfirmationCode),
			zap.String("grade_level", e.GradeLevel),
			zap.String("category", string(e.Category)),
		)
	case *enrollment.ApplicationVerifiedEvent:
		fields = append(fields, zap.Bool("overridden", e.Overridden))
		if e.Overridden {
			fields = append(fields,
				zap.String("justification", e.Justification),
				zap.Strings("outstanding", e.Outstanding),
			)
		}
	case *enrollment.ApplicationApprovedEvent:
		fields = append(fields, zap.Bool("overridden", e.Overridden))
		if e.Overridden {
			fields = append(fields, zap.String("justification", e.Justification))
		}
	case *enrollment.StudentProvisionedEvent:
		fields = append(fields, zap.String("student_id", e.StudentID))
	case *enrollment.ApplicationRejectedEvent:
		fields = append(fields,
			zap.String("reason", e.Reason),
			zap.String("previous_status", string(e.PreviousStatus)),
		)
	case *enrollment.DocumentReviewedEvent:
		fields = append(fields,
			zap.String("application_id", e.ApplicationID.String()),
			zap.String("document_type", e.DocumentType),
			zap.String("status", string(e.Status)),
		)
		if e.Reason != "" {
			fields = append(fields, zap.String("reason", e.Reason))
		}
	case *enrollment.DocumentSupersededEvent:
		fields = append(fields,
			zap.String("application_id", e.ApplicationID.String()),
			zap.String("document_type", e.DocumentType),
			zap.String("superseded_id", e.SupersededID.String()),
			zap.Int("resubmission_count", e.ResubmissionCount),
		)
	case *enrollment.DocumentUploadedEvent:
		fields = append(fields,
			zap.String("application_id", e.ApplicationID.String()),
			zap.String("document_type", e.DocumentType),
			zap.String("file_ref", e.FileRef),
		)
	}

	h.logger.Info("enrollment event", fields...)
	return nil
}

// EventRecorder counts workflow events, typically as OpenTelemetry metrics
type EventRecorder interface {
	RecordTransition(ctx context.Context, eventType string, overridden bool)
	RecordResubmission(ctx context.Context, documentType string, count int)
}

// MetricsHandler forwards workflow events to an EventRecorder
type MetricsHandler struct {
	recorder EventRecorder
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(recorder EventRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsHandler) EventTypes() []string {
	return AllEventTypes
}

// Handle records the event
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	overridden := false
	switch e := event.(type) {
	case *enrollment.ApplicationVerifiedEvent:
		overridden = e.Overridden
	case *enrollment.ApplicationApprovedEvent:
		overridden = e.Overridden
	case *enrollment.DocumentSupersededEvent:
		h.recorder.RecordResubmission(ctx, e.DocumentType, e.ResubmissionCount)
	}
	h.recorder.RecordTransition(ctx, event.EventType(), overridden)
	return nil
}
