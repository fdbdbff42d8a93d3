package enrollment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/shared"
)

// Override records an explicit, attributable bypass of a transition gate
type Override struct {
	ReviewerID    string
	Justification string
	At            time.Time
}

// NewOverride builds an override. Both reviewer and justification are required,
// so an override can never be granted silently.
func NewOverride(reviewerID, justification string) (*Override, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, NewValidationError("override.reviewer_id", "Override requires the authorizing reviewer")
	}
	if strings.TrimSpace(justification) == "" {
		return nil, NewValidationError("override.justification", "Override requires a justification")
	}
	return &Override{
		ReviewerID:    strings.TrimSpace(reviewerID),
		Justification: strings.TrimSpace(justification),
		At:            time.Now(),
	}, nil
}

// Application is the enrollment application aggregate root.
// Status only changes through the transition methods below.
type Application struct {
	shared.BaseAggregateRoot
	ConfirmationCode string
	AcademicPeriod   string
	GradeLevel       string
	Category         EnrollmentCategory
	Profile          ApplicantProfile
	Status           ApplicationStatus

	// Set iff Status == REJECTED
	RejectionReason string
	RejectedAt      *time.Time
	RejectedBy      string

	// Empty while APPROVED means provisioning has not completed yet
	ProvisionedStudentID string
	ProvisionedAt        *time.Time

	ReviewStartedAt      *time.Time
	ReviewStartedBy      string
	VerifiedAt           *time.Time
	VerifiedBy           string
	VerificationOverride *Override
	ApprovedAt           *time.Time
	ApprovedBy           string
	ApprovalOverride     *Override
	ApprovalKey          string
}

// NewApplication creates a PENDING application
func NewApplication(confirmationCode, academicPeriod, gradeLevel string, category EnrollmentCategory, profile ApplicantProfile) (*Application, error) {
	if confirmationCode == "" {
		return nil, NewValidationError("confirmation_code", "Confirmation code cannot be empty")
	}
	if strings.TrimSpace(academicPeriod) == "" {
		return nil, NewValidationError("academic_period", "Academic period cannot be empty")
	}
	if strings.TrimSpace(gradeLevel) == "" {
		return nil, NewValidationError("grade_level", "Grade level cannot be empty")
	}
	if !category.IsValid() {
		return nil, NewValidationError("category", fmt.Sprintf("Unknown enrollment category %q", category))
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ConfirmationCode:  confirmationCode,
		AcademicPeriod:    strings.TrimSpace(academicPeriod),
		GradeLevel:        strings.TrimSpace(gradeLevel),
		Category:          category,
		Profile:           profile,
		Status:            StatusPending,
	}

	app.Record(NewApplicationCreatedEvent(app))

	return app, nil
}

// NewConfirmationCode returns a human readable code such as ENR-2026-1F3A9C0B
func NewConfirmationCode(now time.Time) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("ENR-%d-%s", now.Year(), strings.ToUpper(raw[:8]))
}

// IsTerminal reports whether the application is approved or rejected
func (a *Application) IsTerminal() bool {
	return a.Status.IsTerminal()
}

// Step returns the progress step of the current status
func (a *Application) Step() Step {
	return StatusToStep(a.Status)
}

// HasProvisioningGap reports an approval whose student has not been recorded
func (a *Application) HasProvisioningGap() bool {
	return a.Status == StatusApproved && a.ProvisionedStudentID == ""
}

// CheckVersion compares a caller supplied version with the loaded one.
// Zero means the caller did not supply a version.
func (a *Application) CheckVersion(expected int) error {
	if !a.VersionMatches(expected) {
		return NewConflictError(expected, a.Version)
	}
	return nil
}

// EnsureMutable fails with TerminalStateError on approved or rejected applications
func (a *Application) EnsureMutable(operation string) error {
	if a.IsTerminal() {
		return NewTerminalStateError(a.Status, operation)
	}
	return nil
}

// BeginReview moves a PENDING application into review
func (a *Application) BeginReview(reviewerID string) error {
	if err := a.EnsureMutable("begin review"); err != nil {
		return err
	}
	if a.Status != StatusPending {
		return NewPreconditionFailedError("status",
			fmt.Sprintf("Review can only begin from %s, application is %s", StatusPending, a.Status))
	}

	now := time.Now()
	a.Status = StatusUnderReview
	a.ReviewStartedAt = &now
	a.ReviewStartedBy = reviewerID
	a.Touch(now)

	a.Record(NewReviewStartedEvent(a))

	return nil
}

// MarkVerified moves an UNDER_REVIEW application to VERIFIED.
// outstanding lists the required document types that are not verified; when it
// is non-empty the transition needs an override.
func (a *Application) MarkVerified(reviewerID string, outstanding []string, override *Override) error {
	if err := a.EnsureMutable("mark verified"); err != nil {
		return err
	}
	if a.Status != StatusUnderReview {
		return NewPreconditionFailedError("status",
			fmt.Sprintf("Only applications %s can be verified, application is %s", StatusUnderReview, a.Status))
	}
	if len(outstanding) > 0 && override == nil {
		return NewOutstandingDocumentsError(outstanding)
	}

	now := time.Now()
	a.Status = StatusVerified
	a.VerifiedAt = &now
	a.VerifiedBy = reviewerID
	a.VerificationOverride = override
	a.Touch(now)

	a.Record(NewApplicationVerifiedEvent(a, outstanding))

	return nil
}

// CanApprove checks the status precondition of Approve without changing anything
func (a *Application) CanApprove() error {
	switch a.Status {
	case StatusApproved:
		return NewAlreadyTerminalError(a.Status)
	case StatusRejected:
		return NewTerminalStateError(a.Status, "approve")
	case StatusVerified:
		return nil
	}
	return NewPreconditionFailedError("status",
		fmt.Sprintf("Only %s applications can be approved, application is %s", StatusVerified, a.Status))
}

// Approve moves a VERIFIED application to APPROVED. The payment gate is
// evaluated by the caller; override is set when the gate was bypassed.
func (a *Application) Approve(reviewerID, approvalKey string, override *Override) error {
	if err := a.CanApprove(); err != nil {
		return err
	}

	now := time.Now()
	a.Status = StatusApproved
	a.ApprovedAt = &now
	a.ApprovedBy = reviewerID
	a.ApprovalOverride = override
	a.ApprovalKey = approvalKey
	a.Touch(now)

	a.Record(NewApplicationApprovedEvent(a))

	return nil
}

// RecordProvisionedStudent links the approved application to its student.
// Recording the same id twice is a no-op; a different id is refused.
func (a *Application) RecordProvisionedStudent(studentID string) error {
	if a.Status != StatusApproved {
		return NewPreconditionFailedError("status",
			fmt.Sprintf("Students are only provisioned for %s applications, application is %s", StatusApproved, a.Status))
	}
	if strings.TrimSpace(studentID) == "" {
		return NewValidationError("student_id", "Student ID cannot be empty")
	}
	if a.ProvisionedStudentID != "" {
		if a.ProvisionedStudentID == studentID {
			return nil
		}
		return NewPreconditionFailedError("student_id",
			fmt.Sprintf("Application is already linked to student %s", a.ProvisionedStudentID))
	}

	now := time.Now()
	a.ProvisionedStudentID = studentID
	a.ProvisionedAt = &now
	a.Touch(now)

	a.Record(NewStudentProvisionedEvent(a))

	return nil
}

// Reject closes the application with a mandatory reason
func (a *Application) Reject(reviewerID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", "Rejection reason is required")
	}
	if err := a.EnsureMutable("reject"); err != nil {
		return err
	}

	now := time.Now()
	a.Status = StatusRejected
	a.RejectionReason = reason
	a.RejectedAt = &now
	a.RejectedBy = reviewerID
	a.Touch(now)

	a.Record(NewApplicationRejectedEvent(a))

	return nil
}

// EnsureResubmissionAllowed checks the application side of RequestResubmission
func (a *Application) EnsureResubmissionAllowed() error {
	if err := a.EnsureMutable("request resubmission"); err != nil {
		return err
	}
	if a.Status != StatusUnderReview {
		return NewPreconditionFailedError("status",
			fmt.Sprintf("Resubmission can only be requested while %s, application is %s", StatusUnderReview, a.Status))
	}
	return nil
}

// UpdateProfile replaces the applicant profile snapshot
func (a *Application) UpdateProfile(profile ApplicantProfile) error {
	if err := a.EnsureMutable("update applicant profile"); err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	a.Profile = profile
	a.Touch(time.Now())

	a.Record(NewProfileUpdatedEvent(a))

	return nil
}
