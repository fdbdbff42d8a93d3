package enrollment

import (
	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeApplication = "Application"
	AggregateTypeDocument    = "Document"
)

// Event type constants
const (
	EventTypeApplicationCreated    = "ApplicationCreated"
	EventTypeReviewStarted         = "ApplicationReviewStarted"
	EventTypeApplicationVerified   = "ApplicationVerified"
	EventTypeApplicationApproved   = "ApplicationApproved"
	EventTypeStudentProvisioned    = "StudentProvisioned"
	EventTypeApplicationRejected   = "ApplicationRejected"
	EventTypeProfileUpdated        = "ApplicantProfileUpdated"
	EventTypeDocumentVerified      = "DocumentVerified"
	EventTypeDocumentRejected      = "DocumentRejected"
	EventTypeDocumentResubmitted   = "DocumentResubmitted"
	EventTypeDocumentUploaded      = "DocumentUploaded"
	EventTypeResubmissionRequested = "DocumentResubmissionRequested"
)

// ApplicationCreatedEvent is raised when intake submits a new application
type ApplicationCreatedEvent struct {
	shared.BaseDomainEvent
	ApplicationID    uuid.UUID          `json:"application_id"`
	ConfirmationCode string             `json:"confirmation_code"`
	GradeLevel       string             `json:"grade_level"`
	Category         EnrollmentCategory `json:"category"`
}

// NewApplicationCreatedEvent creates a new ApplicationCreatedEvent
func NewApplicationCreatedEvent(app *Application) *ApplicationCreatedEvent {
	return &ApplicationCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeApplicationCreated, AggregateTypeApplication, app.ID, ""),
		ApplicationID:    app.ID,
		ConfirmationCode: app.ConfirmationCode,
		GradeLevel:       app.GradeLevel,
		Category:         app.Category,
	}
}

// ReviewStartedEvent is raised when a reviewer picks up an application
type ReviewStartedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
}

// NewReviewStartedEvent creates a new ReviewStartedEvent
func NewReviewStartedEvent(app *Application) *ReviewStartedEvent {
	return &ReviewStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReviewStarted, AggregateTypeApplication, app.ID, app.ReviewStartedBy),
		ApplicationID:   app.ID,
	}
}

// ApplicationVerifiedEvent is raised when the documents of an application are accepted.
// Outstanding is non-empty only when the verification was forced by an override.
type ApplicationVerifiedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
	Overridden    bool      `json:"overridden"`
	Justification string    `json:"justification,omitempty"`
	Outstanding   []string  `json:"outstanding,omitempty"`
}

// NewApplicationVerifiedEvent creates a new ApplicationVerifiedEvent
func NewApplicationVerifiedEvent(app *Application, outstanding []string) *ApplicationVerifiedEvent {
	e := &ApplicationVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationVerified, AggregateTypeApplication, app.ID, app.VerifiedBy),
		ApplicationID:   app.ID,
		Outstanding:     outstanding,
	}
	if app.VerificationOverride != nil {
		e.Overridden = true
		e.Justification = app.VerificationOverride.Justification
		e.ActorID = app.VerificationOverride.ReviewerID
	}
	return e
}

// ApplicationApprovedEvent is raised when an application is admitted
type ApplicationApprovedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
	Overridden    bool      `json:"overridden"`
	Justification string    `json:"justification,omitempty"`
}

// NewApplicationApprovedEvent creates a new ApplicationApprovedEvent
func NewApplicationApprovedEvent(app *Application) *ApplicationApprovedEvent {
	e := &ApplicationApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationApproved, AggregateTypeApplication, app.ID, app.ApprovedBy),
		ApplicationID:   app.ID,
	}
	if app.ApprovalOverride != nil {
		e.Overridden = true
		e.Justification = app.ApprovalOverride.Justification
		e.ActorID = app.ApprovalOverride.ReviewerID
	}
	return e
}

// StudentProvisionedEvent is raised once the approved application is linked to its student
type StudentProvisionedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
	StudentID     string    `json:"student_id"`
}

// NewStudentProvisionedEvent creates a new StudentProvisionedEvent
func NewStudentProvisionedEvent(app *Application) *StudentProvisionedEvent {
	return &StudentProvisionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStudentProvisioned, AggregateTypeApplication, app.ID, app.ApprovedBy),
		ApplicationID:   app.ID,
		StudentID:       app.ProvisionedStudentID,
	}
}

// ApplicationRejectedEvent is raised when an application is refused
type ApplicationRejectedEvent struct {
	shared.BaseDomainEvent
	ApplicationID  uuid.UUID         `json:"application_id"`
	Reason         string            `json:"reason"`
	PreviousStatus ApplicationStatus `json:"previous_status"`
}

// NewApplicationRejectedEvent creates a new ApplicationRejectedEvent
func NewApplicationRejectedEvent(app *Application) *ApplicationRejectedEvent {
	prev := StatusPending
	switch {
	case app.VerifiedAt != nil:
		prev = StatusVerified
	case app.ReviewStartedAt != nil:
		prev = StatusUnderReview
	}
	return &ApplicationRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationRejected, AggregateTypeApplication, app.ID, app.RejectedBy),
		ApplicationID:   app.ID,
		Reason:          app.RejectionReason,
		PreviousStatus:  prev,
	}
}

// ProfileUpdatedEvent is raised when the applicant profile is corrected
type ProfileUpdatedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
}

// NewProfileUpdatedEvent creates a new ProfileUpdatedEvent
func NewProfileUpdatedEvent(app *Application) *ProfileUpdatedEvent {
	return &ProfileUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProfileUpdated, AggregateTypeApplication, app.ID, ""),
		ApplicationID:   app.ID,
	}
}

// DocumentReviewedEvent is raised when a reviewer verifies or rejects a document
type DocumentReviewedEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID      `json:"document_id"`
	ApplicationID uuid.UUID      `json:"application_id"`
	DocumentType  string         `json:"document_type"`
	Status        DocumentStatus `json:"status"`
	Reason        string         `json:"reason,omitempty"`
}

// NewDocumentReviewedEvent creates a DocumentVerified or DocumentRejected event from the document status
func NewDocumentReviewedEvent(doc *Document) *DocumentReviewedEvent {
	eventType := EventTypeDocumentVerified
	if doc.Status == DocumentStatusRejected {
		eventType = EventTypeDocumentRejected
	}
	return &DocumentReviewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeDocument, doc.ID, doc.ReviewerID),
		DocumentID:      doc.ID,
		ApplicationID:   doc.ApplicationID,
		DocumentType:    doc.DocumentType,
		Status:          doc.Status,
		Reason:          doc.RejectionReason,
	}
}

// DocumentSupersededEvent is raised when a new document version replaces the current one
type DocumentSupersededEvent struct {
	shared.BaseDomainEvent
	DocumentID        uuid.UUID `json:"document_id"`
	SupersededID      uuid.UUID `json:"superseded_id"`
	ApplicationID     uuid.UUID `json:"application_id"`
	DocumentType      string    `json:"document_type"`
	ResubmissionCount int       `json:"resubmission_count"`
}

// NewDocumentSupersededEvent creates a new DocumentSupersededEvent. eventType is
// EventTypeDocumentResubmitted or EventTypeResubmissionRequested.
func NewDocumentSupersededEvent(eventType string, prev, next *Document, actorID string) *DocumentSupersededEvent {
	return &DocumentSupersededEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, AggregateTypeDocument, next.ID, actorID),
		DocumentID:        next.ID,
		SupersededID:      prev.ID,
		ApplicationID:     next.ApplicationID,
		DocumentType:      next.DocumentType,
		ResubmissionCount: next.ResubmissionCount,
	}
}

// DocumentUploadedEvent is raised when the applicant fills a version opened by a resubmission request
type DocumentUploadedEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID `json:"document_id"`
	ApplicationID uuid.UUID `json:"application_id"`
	DocumentType  string    `json:"document_type"`
	FileRef       string    `json:"file_ref"`
}

// NewDocumentUploadedEvent creates a new DocumentUploadedEvent
func NewDocumentUploadedEvent(doc *Document) *DocumentUploadedEvent {
	return &DocumentUploadedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentUploaded, AggregateTypeDocument, doc.ID, ""),
		DocumentID:      doc.ID,
		ApplicationID:   doc.ApplicationID,
		DocumentType:    doc.DocumentType,
		FileRef:         doc.FileRef,
	}
}
