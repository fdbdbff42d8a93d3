package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"go.uber.org/zap"
)

// DocumentRegistry tracks the verification state of each required document.
// Its operations never change the status of the owning application.
type DocumentRegistry struct {
	appRepo        enrollment.ApplicationRepository
	docRepo        enrollment.DocumentRepository
	requirements   enrollment.RequirementsProvider
	files          enrollment.FileReferenceChecker
	locker         ApplicationLocker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// DocumentRegistryOption configures optional collaborators of the registry
type DocumentRegistryOption func(*DocumentRegistry)

// WithFileReferenceChecker makes Resubmit confirm that the new file exists
func WithFileReferenceChecker(files enrollment.FileReferenceChecker) DocumentRegistryOption {
	return func(r *DocumentRegistry) {
		r.files = files
	}
}

// WithDocumentLocker sets the locker shared with the enrollment service.
// NewEnrollmentService installs its own locker on the registry it is given.
func WithDocumentLocker(locker ApplicationLocker) DocumentRegistryOption {
	return func(r *DocumentRegistry) {
		r.locker = locker
	}
}

// NewDocumentRegistry creates a new DocumentRegistry
func NewDocumentRegistry(
	appRepo enrollment.ApplicationRepository,
	docRepo enrollment.DocumentRepository,
	requirements enrollment.RequirementsProvider,
	logger *zap.Logger,
	opts ...DocumentRegistryOption,
) *DocumentRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &DocumentRegistry{
		appRepo:      appRepo,
		docRepo:      docRepo,
		requirements: requirements,
		locker:       NewLocalLocker(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetEventPublisher sets the event publisher for audit and metrics handlers
func (r *DocumentRegistry) SetEventPublisher(publisher shared.EventPublisher) {
	r.eventPublisher = publisher
}

// Verify marks a document VERIFIED
func (r *DocumentRegistry) Verify(ctx context.Context, documentID uuid.UUID, reviewerID string) (*DocumentResponse, error) {
	return r.mutate(ctx, documentID, func(doc *enrollment.Document) (*enrollment.Document, error) {
		if err := doc.Verify(reviewerID); err != nil {
			return nil, err
		}
		if err := r.docRepo.SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		r.publish(ctx, enrollment.NewDocumentReviewedEvent(doc))
		return doc, nil
	})
}

// Reject marks a document REJECTED with a reason. The row is kept.
func (r *DocumentRegistry) Reject(ctx context.Context, documentID uuid.UUID, reviewerID, reason string) (*DocumentResponse, error) {
	return r.mutate(ctx, documentID, func(doc *enrollment.Document) (*enrollment.Document, error) {
		if err := doc.Reject(reviewerID, reason); err != nil {
			return nil, err
		}
		if err := r.docRepo.SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		r.publish(ctx, enrollment.NewDocumentReviewedEvent(doc))
		return doc, nil
	})
}

// Resubmit answers a rejection or a resubmission request with fileRef. A
// REJECTED document is replaced by a new PENDING version; a version opened by
// RequestResubmission receives the file in place.
func (r *DocumentRegistry) Resubmit(ctx context.Context, documentID uuid.UUID, fileRef string) (*DocumentResponse, error) {
	fileRef = strings.TrimSpace(fileRef)
	if fileRef == "" {
		return nil, enrollment.NewValidationError("file_ref", "File reference is required")
	}

	return r.mutate(ctx, documentID, func(doc *enrollment.Document) (*enrollment.Document, error) {
		if doc.Status != enrollment.DocumentStatusRejected && !doc.AwaitsUpload() {
			return nil, enrollment.NewPreconditionFailedError("status",
				fmt.Sprintf("Only %s documents or requested resubmissions accept a file, document is %s",
					enrollment.DocumentStatusRejected, doc.Status))
		}
		if err := r.checkFile(ctx, fileRef); err != nil {
			return nil, err
		}

		if doc.Status == enrollment.DocumentStatusRejected {
			return r.supersede(ctx, doc, fileRef, enrollment.EventTypeDocumentResubmitted, "")
		}
		if err := doc.AttachFile(fileRef); err != nil {
			return nil, err
		}
		if err := r.docRepo.SaveWithLock(ctx, doc); err != nil {
			return nil, err
		}
		r.publish(ctx, enrollment.NewDocumentUploadedEvent(doc))
		return doc, nil
	})
}

// RequestResubmission supersedes a PENDING or REJECTED document of app with an
// empty version awaiting upload. The caller holds the application lock and has
// checked that app is under review.
func (r *DocumentRegistry) RequestResubmission(ctx context.Context, app *enrollment.Application, documentID uuid.UUID, reviewerID string) (*enrollment.Document, error) {
	doc, err := r.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.ApplicationID != app.ID {
		return nil, shared.NewFieldError(enrollment.CodeDocumentNotFound, "document_id",
			fmt.Sprintf("Document %s does not belong to application %s", documentID, app.ID))
	}
	if !doc.CanBeResubmitted() {
		return nil, enrollment.NewPreconditionFailedError("status",
			fmt.Sprintf("Resubmission can only be requested for %s or %s current documents, document is %s",
				enrollment.DocumentStatusPending, enrollment.DocumentStatusRejected, doc.Status))
	}
	return r.supersede(ctx, doc, "", enrollment.EventTypeResubmissionRequested, reviewerID)
}

// AllVerified reports whether every required document type of the application
// has a VERIFIED current version
func (r *DocumentRegistry) AllVerified(ctx context.Context, applicationID uuid.UUID) (bool, error) {
	app, err := r.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return false, err
	}
	outstanding, err := r.OutstandingDocuments(ctx, app)
	if err != nil {
		return false, err
	}
	return len(outstanding) == 0, nil
}

// OutstandingDocuments returns the required types of app lacking a VERIFIED current version
func (r *DocumentRegistry) OutstandingDocuments(ctx context.Context, app *enrollment.Application) ([]string, error) {
	required, err := r.requirements.RequiredDocumentTypes(ctx, app.GradeLevel, app.Category)
	if err != nil {
		return nil, fmt.Errorf("load required document types: %w", err)
	}
	docs, err := r.docRepo.FindCurrentByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	return enrollment.OutstandingTypes(required, docs), nil
}

// History returns every version of the document's type, oldest first
func (r *DocumentRegistry) History(ctx context.Context, documentID uuid.UUID) ([]DocumentResponse, error) {
	doc, err := r.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	docs, err := r.docRepo.FindHistory(ctx, doc.ApplicationID, doc.DocumentType)
	if err != nil {
		return nil, err
	}
	return ToDocumentResponses(docs), nil
}

func (r *DocumentRegistry) load(ctx context.Context, documentID uuid.UUID) (*enrollment.Document, error) {
	doc, err := r.docRepo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewFieldError(enrollment.CodeDocumentNotFound, "document_id",
				fmt.Sprintf("Document %s not found", documentID))
		}
		return nil, err
	}
	return doc, nil
}

// mutate runs fn on a document while holding its application's lock, so
// document writes never interleave with application transitions. The
// document and application are re-read under the lock.
func (r *DocumentRegistry) mutate(ctx context.Context, documentID uuid.UUID, fn func(doc *enrollment.Document) (*enrollment.Document, error)) (*DocumentResponse, error) {
	doc, err := r.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	unlock, err := acquire(ctx, r.locker, doc.ApplicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if doc, err = r.load(ctx, documentID); err != nil {
		return nil, err
	}
	app, err := r.appRepo.FindByID(ctx, doc.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.IsTerminal() {
		return nil, enrollment.NewAlreadyTerminalError(app.Status)
	}

	out, err := fn(doc)
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(out)
	return &resp, nil
}

func (r *DocumentRegistry) checkFile(ctx context.Context, fileRef string) error {
	if r.files == nil {
		return nil
	}
	ok, err := r.files.Exists(ctx, fileRef)
	if err != nil {
		return fmt.Errorf("check file reference: %w", err)
	}
	if !ok {
		return enrollment.NewValidationError("file_ref", fmt.Sprintf("File %s was not found in document storage", fileRef))
	}
	return nil
}

func (r *DocumentRegistry) supersede(ctx context.Context, doc *enrollment.Document, fileRef, eventType, actorID string) (*enrollment.Document, error) {
	next, err := doc.Supersede(fileRef)
	if err != nil {
		return nil, err
	}
	if err := r.docRepo.Supersede(ctx, doc, next); err != nil {
		return nil, err
	}

	r.logger.Info("document superseded",
		zap.String("application_id", doc.ApplicationID.String()),
		zap.String("document_type", doc.DocumentType),
		zap.String("previous_id", doc.ID.String()),
		zap.String("document_id", next.ID.String()),
		zap.Int("resubmission_count", next.ResubmissionCount),
	)
	r.publish(ctx, enrollment.NewDocumentSupersededEvent(eventType, doc, next, actorID))
	return next, nil
}

func (r *DocumentRegistry) publish(ctx context.Context, events ...shared.DomainEvent) {
	if r.eventPublisher == nil {
		return
	}
	if err := r.eventPublisher.Publish(ctx, events...); err != nil {
		r.logger.Warn("failed to publish document events", zap.Error(err))
	}
}
