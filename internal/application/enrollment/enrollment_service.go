package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// EnrollmentService drives applications through their lifecycle. Every
// application level transition runs under the application's lock and is
// persisted with an optimistic version check.
type EnrollmentService struct {
	appRepo        enrollment.ApplicationRepository
	docRepo        enrollment.DocumentRepository
	requirements   enrollment.RequirementsProvider
	registry       *DocumentRegistry
	gate           *PaymentReadinessGate
	provisioner    *AdmissionProvisioner
	locker         ApplicationLocker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// EnrollmentServiceOption configures optional collaborators of the service
type EnrollmentServiceOption func(*EnrollmentService)

// WithLocker replaces the default in-process locker
func WithLocker(locker ApplicationLocker) EnrollmentServiceOption {
	return func(s *EnrollmentService) {
		s.locker = locker
	}
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(
	appRepo enrollment.ApplicationRepository,
	docRepo enrollment.DocumentRepository,
	requirements enrollment.RequirementsProvider,
	registry *DocumentRegistry,
	gate *PaymentReadinessGate,
	provisioner *AdmissionProvisioner,
	logger *zap.Logger,
	opts ...EnrollmentServiceOption,
) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EnrollmentService{
		appRepo:      appRepo,
		docRepo:      docRepo,
		requirements: requirements,
		registry:     registry,
		gate:         gate,
		provisioner:  provisioner,
		locker:       NewLocalLocker(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Document writes take the same per-application lock as transitions.
	if registry != nil {
		registry.locker = s.locker
	}
	return s
}

// SetEventPublisher sets the event publisher for audit and metrics handlers
func (s *EnrollmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateApplication submits a new PENDING application with one PENDING document per required type
func (s *EnrollmentService) CreateApplication(ctx context.Context, req CreateApplicationRequest) (*ApplicationStatusResponse, error) {
	profile, err := req.Profile.ToDomain()
	if err != nil {
		return nil, err
	}
	category := enrollment.EnrollmentCategory(strings.ToUpper(strings.TrimSpace(req.Category)))

	app, err := enrollment.NewApplication(enrollment.NewConfirmationCode(time.Now()), req.AcademicPeriod, req.GradeLevel, category, profile)
	if err != nil {
		return nil, err
	}

	required, err := s.requirements.RequiredDocumentTypes(ctx, app.GradeLevel, app.Category)
	if err != nil {
		return nil, fmt.Errorf("load required document types: %w", err)
	}
	docs := make([]enrollment.Document, 0, len(required))
	for _, docType := range required {
		doc, err := enrollment.NewDocument(app.ID, docType)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := s.appRepo.Create(ctx, app, docs); err != nil {
		return nil, err
	}

	s.logger.Info("application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("confirmation_code", app.ConfirmationCode),
		zap.Int("documents", len(docs)),
	)
	s.publishEvents(ctx, app)

	return &ApplicationStatusResponse{
		Application: ToApplicationResponse(app),
		Documents:   ToDocumentResponses(docs),
		Outstanding: required,
	}, nil
}

// GetStatus returns the application, its current documents and its payment readiness.
// An unreachable ledger does not fail the read; it is reported in PaymentError.
func (s *EnrollmentService) GetStatus(ctx context.Context, applicationID uuid.UUID) (*ApplicationStatusResponse, error) {
	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	docs, err := s.docRepo.FindCurrentByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.registry.OutstandingDocuments(ctx, app)
	if err != nil {
		return nil, err
	}

	resp := &ApplicationStatusResponse{
		Application: ToApplicationResponse(app),
		Documents:   ToDocumentResponses(docs),
		Outstanding: outstanding,
	}

	readiness, err := s.gate.EvaluateApplication(ctx, app)
	if err != nil {
		resp.PaymentError = err.Error()
	} else {
		payment := ToPaymentReadinessResponse(app.ID, readiness)
		resp.Payment = &payment
	}
	return resp, nil
}

// GetByConfirmationCode looks an application up by its confirmation code
func (s *EnrollmentService) GetByConfirmationCode(ctx context.Context, code string) (*ApplicationResponse, error) {
	app, err := s.appRepo.FindByConfirmationCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	resp := ToApplicationResponse(app)
	return &resp, nil
}

// ListApplications returns a page of the reviewer queue and the total count
func (s *EnrollmentService) ListApplications(ctx context.Context, filter ApplicationListFilter) ([]ApplicationListItemResponse, int64, error) {
	f := filter.ToFilter()

	apps, err := s.appRepo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.appRepo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	items := make([]ApplicationListItemResponse, len(apps))
	for i := range apps {
		items[i] = ToApplicationListItemResponse(&apps[i])
	}
	return items, total, nil
}

// CountByStatus counts applications per status
func (s *EnrollmentService) CountByStatus(ctx context.Context) (*StatusCountsResponse, error) {
	counts, err := s.appRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatusCountsResponse{
		Pending:     counts[enrollment.StatusPending],
		UnderReview: counts[enrollment.StatusUnderReview],
		Verified:    counts[enrollment.StatusVerified],
		Approved:    counts[enrollment.StatusApproved],
		Rejected:    counts[enrollment.StatusRejected],
	}
	resp.Total = resp.Pending + resp.UnderReview + resp.Verified + resp.Approved + resp.Rejected
	return resp, nil
}

// UpdateApplicantProfile replaces the profile of a non-terminal application
func (s *EnrollmentService) UpdateApplicantProfile(ctx context.Context, applicationID uuid.UUID, req UpdateProfileRequest) (*ApplicationResponse, error) {
	profile, err := req.Profile.ToDomain()
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, applicationID, req.ExpectedVersion, func(app *enrollment.Application) error {
		return app.UpdateProfile(profile)
	})
}

// BeginReview moves a PENDING application to UNDER_REVIEW
func (s *EnrollmentService) BeginReview(ctx context.Context, applicationID uuid.UUID, reviewerID string, req TransitionRequest) (*ApplicationResponse, error) {
	if err := requireReviewer(reviewerID); err != nil {
		return nil, err
	}
	return s.transition(ctx, applicationID, req.ExpectedVersion, func(app *enrollment.Application) error {
		return app.BeginReview(reviewerID)
	})
}

// AllDocumentsVerified is the strict document check used by MarkVerified
func (s *EnrollmentService) AllDocumentsVerified(ctx context.Context, applicationID uuid.UUID) (bool, error) {
	return s.registry.AllVerified(ctx, applicationID)
}

// MarkVerified moves an UNDER_REVIEW application to VERIFIED. Outstanding
// documents block the transition unless an attributed override is supplied.
func (s *EnrollmentService) MarkVerified(ctx context.Context, applicationID uuid.UUID, reviewerID string, req MarkVerifiedRequest) (*ApplicationResponse, error) {
	if err := requireReviewer(reviewerID); err != nil {
		return nil, err
	}
	override, err := toOverride(req.Override, "override")
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, applicationID, req.ExpectedVersion, func(app *enrollment.Application) error {
		if err := app.EnsureMutable("mark verified"); err != nil {
			return err
		}
		outstanding, err := s.registry.OutstandingDocuments(ctx, app)
		if err != nil {
			return err
		}
		if len(outstanding) > 0 && override != nil {
			s.logger.Warn("document verification overridden",
				zap.String("application_id", app.ID.String()),
				zap.String("authorized_by", override.ReviewerID),
				zap.Strings("outstanding", outstanding),
				zap.String("justification", override.Justification),
			)
		}
		return app.MarkVerified(reviewerID, outstanding, override)
	})
}

// Approve admits a VERIFIED application and provisions its student.
//
// A request repeating the idempotency key that approved the application
// returns the recorded student id, provisioning it first if the earlier
// attempt stopped short. A request without a key is keyed by its reviewer.
// Any other approve of an approved application fails with AlreadyTerminal. If provisioning fails after the approval is stored,
// the application stays APPROVED without a student and a ProvisioningError
// is returned; Provision repairs it.
func (s *EnrollmentService) Approve(ctx context.Context, applicationID uuid.UUID, reviewerID string, req ApproveRequest) (*ApprovalResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "enrollment.approve",
		telemetry.ApplicationID(applicationID),
		telemetry.ReviewerIDKey.String(reviewerID),
	)

	resp, err := s.approve(ctx, applicationID, reviewerID, req)
	if err != nil {
		telemetry.EndSpan(span, err)
		return nil, err
	}
	telemetry.EndSpan(span, nil,
		telemetry.StudentIDKey.String(resp.StudentID),
		telemetry.ReplayedKey.Bool(resp.Replayed),
	)
	return resp, nil
}

func (s *EnrollmentService) approve(ctx context.Context, applicationID uuid.UUID, reviewerID string, req ApproveRequest) (*ApprovalResponse, error) {
	if err := requireReviewer(reviewerID); err != nil {
		return nil, err
	}
	override, err := toOverride(req.PaymentOverride, "payment_override")
	if err != nil {
		return nil, err
	}
	opts := ProvisionOptions{
		PreserveExistingStudentID: req.PreserveExistingStudentID,
		ExistingStudentID:         req.ExistingStudentID,
	}
	key := approvalKey(reviewerID, req.IdempotencyKey)

	unlock, err := s.lock(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if app.Status == enrollment.StatusApproved && key == app.ApprovalKey {
		return s.replayApproval(ctx, app, opts)
	}
	if err := app.CheckVersion(req.ExpectedVersion); err != nil {
		return nil, err
	}
	if err := app.CanApprove(); err != nil {
		return nil, err
	}
	if err := s.provisioner.CheckOptions(ctx, opts); err != nil {
		return nil, err
	}

	if override == nil {
		readiness, err := s.gate.EvaluateApplication(ctx, app)
		if err != nil {
			return nil, err
		}
		if !readiness.Ready {
			return nil, enrollment.NewPreconditionFailedError("payment",
				fmt.Sprintf("Payment requirement not met: paid %s of %s required (%s)",
					readiness.TotalPaid.StringFixed(2), readiness.TotalRequired.StringFixed(2), readiness.StatusLabel))
		}
	} else {
		s.logger.Warn("payment gate overridden",
			zap.String("application_id", app.ID.String()),
			zap.String("authorized_by", override.ReviewerID),
			zap.String("justification", override.Justification),
		)
	}

	// Once the preconditions hold the approval runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := app.Approve(reviewerID, key, override); err != nil {
		return nil, err
	}
	if err := s.appRepo.SaveWithLock(ctx, app); err != nil {
		return nil, err
	}

	studentID, provErr := s.provisioner.Provision(ctx, app, opts)
	s.publishEvents(ctx, app)
	if provErr != nil {
		s.logger.Error("application approved but provisioning failed",
			zap.String("application_id", app.ID.String()),
			zap.Error(provErr),
		)
		return nil, provErr
	}

	return &ApprovalResponse{
		Application: ToApplicationResponse(app),
		StudentID:   studentID,
	}, nil
}

// approvalKey identifies an approve request for replay. Without a client key
// the reviewer stands in for it: the same reviewer retrying gets the recorded
// student, a different reviewer is refused.
func approvalKey(reviewerID, clientKey string) string {
	if key := strings.TrimSpace(clientKey); key != "" {
		return key
	}
	return "reviewer:" + strings.TrimSpace(reviewerID)
}

// replayApproval answers a retried approve carrying the original idempotency key
func (s *EnrollmentService) replayApproval(ctx context.Context, app *enrollment.Application, opts ProvisionOptions) (*ApprovalResponse, error) {
	studentID, err := s.provisioner.Provision(ctx, app, opts)
	s.publishEvents(ctx, app)
	if err != nil {
		return nil, err
	}
	return &ApprovalResponse{
		Application: ToApplicationResponse(app),
		StudentID:   studentID,
		Replayed:    true,
	}, nil
}

// Provision repairs an approved application whose student was never recorded.
// On an application that already has a student it returns that student.
func (s *EnrollmentService) Provision(ctx context.Context, applicationID uuid.UUID, req ProvisionRequest) (*ApprovalResponse, error) {
	unlock, err := s.lock(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := app.CheckVersion(req.ExpectedVersion); err != nil {
		return nil, err
	}
	if app.Status == enrollment.StatusRejected {
		return nil, enrollment.NewTerminalStateError(app.Status, "provision")
	}

	replayed := app.ProvisionedStudentID != ""
	studentID, err := s.provisioner.Provision(ctx, app, ProvisionOptions{
		PreserveExistingStudentID: req.PreserveExistingStudentID,
		ExistingStudentID:         req.ExistingStudentID,
	})
	s.publishEvents(ctx, app)
	if err != nil {
		return nil, err
	}
	return &ApprovalResponse{
		Application: ToApplicationResponse(app),
		StudentID:   studentID,
		Replayed:    replayed,
	}, nil
}

// Reject closes a non-terminal application with a reason
func (s *EnrollmentService) Reject(ctx context.Context, applicationID uuid.UUID, reviewerID string, req RejectRequest) (*ApplicationResponse, error) {
	if err := requireReviewer(reviewerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, enrollment.NewValidationError("reason", "Rejection reason is required")
	}
	return s.transition(ctx, applicationID, req.ExpectedVersion, func(app *enrollment.Application) error {
		return app.Reject(reviewerID, req.Reason)
	})
}

// RequestResubmission asks the applicant for a new version of a document.
// The application stays UNDER_REVIEW and its version is unchanged.
func (s *EnrollmentService) RequestResubmission(ctx context.Context, applicationID, documentID uuid.UUID, reviewerID string, req TransitionRequest) (*DocumentResponse, error) {
	if err := requireReviewer(reviewerID); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := app.CheckVersion(req.ExpectedVersion); err != nil {
		return nil, err
	}
	if err := app.EnsureResubmissionAllowed(); err != nil {
		return nil, err
	}

	next, err := s.registry.RequestResubmission(ctx, app, documentID, reviewerID)
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(next)
	return &resp, nil
}

// transition loads the application under its lock, applies fn and saves it
func (s *EnrollmentService) transition(ctx context.Context, applicationID uuid.UUID, expectedVersion int, fn func(app *enrollment.Application) error) (*ApplicationResponse, error) {
	unlock, err := s.lock(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := app.CheckVersion(expectedVersion); err != nil {
		return nil, err
	}
	from := app.Status
	if err := fn(app); err != nil {
		return nil, err
	}
	if err := s.appRepo.SaveWithLock(ctx, app); err != nil {
		return nil, err
	}

	if from != app.Status {
		s.logger.Info("application transitioned",
			zap.String("application_id", app.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(app.Status)),
			zap.Int("version", app.Version),
		)
	}
	s.publishEvents(ctx, app)

	resp := ToApplicationResponse(app)
	return &resp, nil
}

func (s *EnrollmentService) lock(ctx context.Context, applicationID uuid.UUID) (func(), error) {
	return acquire(ctx, s.locker, applicationID)
}

func (s *EnrollmentService) publishEvents(ctx context.Context, app *enrollment.Application) {
	events := app.PullEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish application events",
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
	}
}

func requireReviewer(reviewerID string) error {
	if strings.TrimSpace(reviewerID) == "" {
		return enrollment.NewValidationError("reviewer_id", "Reviewer identity is required")
	}
	return nil
}

func toOverride(in *OverrideInput, field string) (*enrollment.Override, error) {
	if in == nil {
		return nil, nil
	}
	o, err := enrollment.NewOverride(in.ReviewerID, in.Justification)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return nil, de.WithField(strings.Replace(de.Field, "override", field, 1))
		}
		return nil, err
	}
	return o, nil
}
