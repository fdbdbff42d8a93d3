package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxMintAttempts bounds retries when a freshly generated student number is taken
const maxMintAttempts = 3

// ProvisionOptions controls how the student identity is obtained
type ProvisionOptions struct {
	// PreserveExistingStudentID reuses ExistingStudentID instead of minting a new number
	PreserveExistingStudentID bool
	ExistingStudentID         string
}

// AdmissionProvisioner creates, or reuses, the one student identity of an approved application
type AdmissionProvisioner struct {
	appRepo  enrollment.ApplicationRepository
	students enrollment.StudentDirectory
	logger   *zap.Logger
}

// NewAdmissionProvisioner creates a new AdmissionProvisioner
func NewAdmissionProvisioner(
	appRepo enrollment.ApplicationRepository,
	students enrollment.StudentDirectory,
	logger *zap.Logger,
) *AdmissionProvisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionProvisioner{
		appRepo:  appRepo,
		students: students,
		logger:   logger,
	}
}

// CheckOptions validates caller supplied options before anything is changed
func (p *AdmissionProvisioner) CheckOptions(ctx context.Context, opts ProvisionOptions) error {
	if !opts.PreserveExistingStudentID {
		return nil
	}
	id := strings.TrimSpace(opts.ExistingStudentID)
	if id == "" {
		return enrollment.NewValidationError("existing_student_id", "Existing student ID is required when preserving the student identity")
	}
	if _, err := p.students.FindByStudentNumber(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return enrollment.NewValidationError("existing_student_id", fmt.Sprintf("Student %s does not exist", id))
		}
		return err
	}
	return nil
}

// Provision returns the student id of an approved application, minting it on
// first use. It is idempotent: once the application records a student id, that
// id is returned unchanged. The caller must hold the application lock.
func (p *AdmissionProvisioner) Provision(ctx context.Context, app *enrollment.Application, opts ProvisionOptions) (studentID string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "admission_provisioner.provision", telemetry.ApplicationID(app.ID))
	defer func() { telemetry.EndSpan(span, err, telemetry.StudentIDKey.String(studentID)) }()

	if app.ProvisionedStudentID != "" {
		span.SetAttributes(telemetry.ReplayedKey.Bool(true))
		return app.ProvisionedStudentID, nil
	}
	if app.Status != enrollment.StatusApproved {
		return "", enrollment.NewPreconditionFailedError("status",
			fmt.Sprintf("Only %s applications can be provisioned, application is %s", enrollment.StatusApproved, app.Status))
	}

	studentID, err = p.resolveStudent(ctx, app, opts)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) && de.Code == enrollment.CodeValidation {
			return "", err
		}
		return "", enrollment.NewProvisioningError(err)
	}

	mark := app.EventMark()
	if err = app.RecordProvisionedStudent(studentID); err != nil {
		return "", enrollment.NewProvisioningError(err)
	}
	if err = p.appRepo.SaveWithLock(ctx, app); err != nil {
		// The student stays linked by application id, so a retry finds and records it.
		p.logger.Error("failed to record provisioned student",
			zap.String("application_id", app.ID.String()),
			zap.String("student_id", studentID),
			zap.Error(err),
		)
		app.ProvisionedStudentID = ""
		app.ProvisionedAt = nil
		app.RewindEvents(mark)
		return "", enrollment.NewProvisioningError(err)
	}

	p.logger.Info("student provisioned",
		zap.String("application_id", app.ID.String()),
		zap.String("student_id", studentID),
		zap.Bool("preserved", opts.PreserveExistingStudentID),
	)
	return studentID, nil
}

// resolveStudent finds the student already linked to app, links the preserved one, or mints a new one
func (p *AdmissionProvisioner) resolveStudent(ctx context.Context, app *enrollment.Application, opts ProvisionOptions) (string, error) {
	linked, err := p.students.FindByApplicationID(ctx, app.ID)
	switch {
	case err == nil:
		return linked.StudentNumber, nil
	case !errors.Is(err, shared.ErrNotFound):
		return "", fmt.Errorf("lookup student by application: %w", err)
	}

	if opts.PreserveExistingStudentID {
		if err := p.CheckOptions(ctx, opts); err != nil {
			return "", err
		}
		// Linked before the application is saved, so a repair without options
		// finds the preserved identity instead of minting a new one.
		number := strings.TrimSpace(opts.ExistingStudentID)
		if err := p.students.LinkApplication(ctx, app.ID, number); err != nil {
			return "", fmt.Errorf("link existing student: %w", err)
		}
		return number, nil
	}

	var lastErr error
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		number, err := p.students.GenerateStudentNumber(ctx)
		if err != nil {
			return "", fmt.Errorf("generate student number: %w", err)
		}
		student, err := enrollment.NewStudent(number, app)
		if err != nil {
			return "", err
		}
		err = p.students.Create(ctx, student)
		if err == nil {
			return student.StudentNumber, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return "", fmt.Errorf("create student: %w", err)
		}
		// Either the number was taken or another request linked a student first.
		if linked, findErr := p.students.FindByApplicationID(ctx, app.ID); findErr == nil {
			return linked.StudentNumber, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("could not allocate a student number: %w", lastErr)
}
