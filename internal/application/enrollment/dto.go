package enrollment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BirthDateLayout is the wire format of birth dates
const BirthDateLayout = "2006-01-02"

// ==================== Requests ====================

// GuardianInput is one guardian contact in a profile request
type GuardianInput struct {
	Name         string `json:"name" binding:"required,max=200"`
	Relationship string `json:"relationship" binding:"max=50"`
	Phone        string `json:"phone" binding:"max=30"`
	Email        string `json:"email" binding:"omitempty,email,max=200"`
}

// ProfileInput is the applicant profile as submitted
type ProfileInput struct {
	FirstName   string          `json:"first_name" binding:"required,max=100"`
	MiddleName  string          `json:"middle_name" binding:"max=100"`
	LastName    string          `json:"last_name" binding:"required,max=100"`
	BirthDate   string          `json:"birth_date" binding:"required"`
	BirthPlace  string          `json:"birth_place" binding:"max=200"`
	Gender      string          `json:"gender" binding:"omitempty,oneof=MALE FEMALE UNSPECIFIED"`
	Address     string          `json:"address" binding:"max=500"`
	PreviousLRN string          `json:"previous_lrn" binding:"max=20"`
	Guardians   []GuardianInput `json:"guardians" binding:"required,min=1,dive"`
}

// ToDomain converts the input into a profile snapshot
func (p ProfileInput) ToDomain() (enrollment.ApplicantProfile, error) {
	birth, err := time.Parse(BirthDateLayout, strings.TrimSpace(p.BirthDate))
	if err != nil {
		return enrollment.ApplicantProfile{}, enrollment.NewValidationError("birth_date", "Birth date must be formatted as YYYY-MM-DD")
	}
	guardians := make([]enrollment.GuardianContact, len(p.Guardians))
	for i, g := range p.Guardians {
		guardians[i] = enrollment.GuardianContact{
			Name:         strings.TrimSpace(g.Name),
			Relationship: strings.TrimSpace(g.Relationship),
			Phone:        strings.TrimSpace(g.Phone),
			Email:        strings.TrimSpace(g.Email),
		}
	}
	return enrollment.ApplicantProfile{
		FirstName:   strings.TrimSpace(p.FirstName),
		MiddleName:  strings.TrimSpace(p.MiddleName),
		LastName:    strings.TrimSpace(p.LastName),
		BirthDate:   birth,
		BirthPlace:  strings.TrimSpace(p.BirthPlace),
		Gender:      enrollment.Gender(p.Gender),
		Address:     strings.TrimSpace(p.Address),
		PreviousLRN: strings.TrimSpace(p.PreviousLRN),
		Guardians:   guardians,
	}, nil
}

// CreateApplicationRequest represents a request to submit a new application
type CreateApplicationRequest struct {
	AcademicPeriod string       `json:"academic_period" binding:"required,max=20"`
	GradeLevel     string       `json:"grade_level" binding:"required,max=20"`
	Category       string       `json:"category" binding:"required,oneof=NEW CONTINUING RETURNING TRANSFEREE"`
	Profile        ProfileInput `json:"profile" binding:"required"`
}

// UpdateProfileRequest replaces the applicant profile
type UpdateProfileRequest struct {
	ExpectedVersion int          `json:"expected_version" binding:"omitempty,min=1"`
	Profile         ProfileInput `json:"profile" binding:"required"`
}

// TransitionRequest carries the version the caller last read
type TransitionRequest struct {
	ExpectedVersion int `json:"expected_version" binding:"omitempty,min=1"`
}

// OverrideInput is an explicit, attributed bypass of a gate
type OverrideInput struct {
	ReviewerID    string `json:"reviewer_id" binding:"max=100"`
	Justification string `json:"justification" binding:"max=1000"`
}

// MarkVerifiedRequest represents a request to mark an application's documents verified
type MarkVerifiedRequest struct {
	ExpectedVersion int            `json:"expected_version" binding:"omitempty,min=1"`
	Override        *OverrideInput `json:"override"`
}

// ApproveRequest represents a request to approve an application.
// IdempotencyKey is taken from the Idempotency-Key header when absent from the body.
type ApproveRequest struct {
	ExpectedVersion           int            `json:"expected_version" binding:"omitempty,min=1"`
	IdempotencyKey            string         `json:"idempotency_key" binding:"max=128"`
	PaymentOverride           *OverrideInput `json:"payment_override"`
	PreserveExistingStudentID bool           `json:"preserve_existing_student_id"`
	ExistingStudentID         string         `json:"existing_student_id" binding:"max=50"`
}

// ProvisionRequest represents a request to (re)run student provisioning
type ProvisionRequest struct {
	ExpectedVersion           int    `json:"expected_version" binding:"omitempty,min=1"`
	PreserveExistingStudentID bool   `json:"preserve_existing_student_id"`
	ExistingStudentID         string `json:"existing_student_id" binding:"max=50"`
}

// RejectRequest represents a request to reject an application
type RejectRequest struct {
	ExpectedVersion int    `json:"expected_version" binding:"omitempty,min=1"`
	Reason          string `json:"reason" binding:"max=1000"`
}

// RejectDocumentRequest represents a request to reject a document
type RejectDocumentRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// ResubmitDocumentRequest represents a request to upload a new version of a document
type ResubmitDocumentRequest struct {
	FileRef string `json:"file_ref" binding:"required,max=500"`
}

// ApplicationListFilter represents filter options for the reviewer queue
type ApplicationListFilter struct {
	Search         string `form:"search"`
	Status         string `form:"status" binding:"omitempty,oneof=PENDING UNDER_REVIEW VERIFIED APPROVED REJECTED"`
	GradeLevel     string `form:"grade_level"`
	Category       string `form:"category" binding:"omitempty,oneof=NEW CONTINUING RETURNING TRANSFEREE"`
	AcademicPeriod string `form:"academic_period"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by" binding:"omitempty,oneof=created_at updated_at confirmation_code last_name grade_level academic_period status"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter converts the list filter into a repository filter
func (f ApplicationListFilter) ToFilter() shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search
	return filter.
		Where("status", f.Status).
		Where("grade_level", f.GradeLevel).
		Where("category", f.Category).
		Where("academic_period", f.AcademicPeriod)
}

// ==================== Responses ====================

// GuardianResponse is one guardian contact
type GuardianResponse struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

// ProfileResponse is the applicant profile snapshot
type ProfileResponse struct {
	FullName    string             `json:"full_name"`
	FirstName   string             `json:"first_name"`
	MiddleName  string             `json:"middle_name,omitempty"`
	LastName    string             `json:"last_name"`
	BirthDate   string             `json:"birth_date"`
	BirthPlace  string             `json:"birth_place,omitempty"`
	Gender      string             `json:"gender,omitempty"`
	Address     string             `json:"address,omitempty"`
	PreviousLRN string             `json:"previous_lrn,omitempty"`
	Guardians   []GuardianResponse `json:"guardians"`
}

// OverrideResponse describes a recorded override
type OverrideResponse struct {
	ReviewerID    string    `json:"reviewer_id"`
	Justification string    `json:"justification"`
	At            time.Time `json:"at"`
}

// PendingStateView is the PENDING variant
type PendingStateView struct {
	Kind        string    `json:"kind"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// UnderReviewStateView is the UNDER_REVIEW variant
type UnderReviewStateView struct {
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	ReviewerID string    `json:"reviewer_id"`
}

// VerifiedStateView is the VERIFIED variant
type VerifiedStateView struct {
	Kind       string            `json:"kind"`
	VerifiedAt time.Time         `json:"verified_at"`
	VerifiedBy string            `json:"verified_by"`
	Override   *OverrideResponse `json:"override,omitempty"`
}

// ApprovedStateView is the APPROVED variant; student_id is null until provisioned
type ApprovedStateView struct {
	Kind       string            `json:"kind"`
	StudentID  *string           `json:"student_id"`
	ApprovedAt time.Time         `json:"approved_at"`
	ApprovedBy string            `json:"approved_by"`
	Override   *OverrideResponse `json:"override,omitempty"`
}

// RejectedStateView is the REJECTED variant
type RejectedStateView struct {
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
	RejectedBy string    `json:"rejected_by"`
}

// ApplicationResponse represents an application in API responses
type ApplicationResponse struct {
	ID               uuid.UUID       `json:"id"`
	ConfirmationCode string          `json:"confirmation_code"`
	AcademicPeriod   string          `json:"academic_period"`
	GradeLevel       string          `json:"grade_level"`
	Category         string          `json:"category"`
	Status           string          `json:"status"`
	Step             enrollment.Step `json:"step"`
	State            interface{}     `json:"state"`
	Profile          ProfileResponse `json:"profile"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ApplicationListItemResponse represents an application row in the reviewer queue
type ApplicationListItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ConfirmationCode string          `json:"confirmation_code"`
	ApplicantName    string          `json:"applicant_name"`
	AcademicPeriod   string          `json:"academic_period"`
	GradeLevel       string          `json:"grade_level"`
	Category         string          `json:"category"`
	Status           string          `json:"status"`
	Step             enrollment.Step `json:"step"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
}

// DocumentResponse represents one document version
type DocumentResponse struct {
	ID                uuid.UUID  `json:"id"`
	ApplicationID     uuid.UUID  `json:"application_id"`
	DocumentType      string     `json:"document_type"`
	Status            string     `json:"status"`
	FileRef           string     `json:"file_ref,omitempty"`
	ResubmissionCount int        `json:"resubmission_count"`
	IsCurrentVersion  bool       `json:"is_current_version"`
	SupersedesID      *uuid.UUID `json:"supersedes_id,omitempty"`
	ReviewerID        string     `json:"reviewer_id,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason   string     `json:"rejection_reason,omitempty"`
	Version           int        `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
}

// PaymentReadinessResponse is the payment gate result
type PaymentReadinessResponse struct {
	ApplicationID uuid.UUID       `json:"application_id"`
	TotalRequired decimal.Decimal `json:"total_required"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Ready         bool            `json:"ready"`
	StatusLabel   string          `json:"status_label"`
}

// ApplicationStatusResponse is the full status view of one application.
// Payment is nil and PaymentError set when the ledger could not be reached.
type ApplicationStatusResponse struct {
	Application  ApplicationResponse       `json:"application"`
	Documents    []DocumentResponse        `json:"documents"`
	Outstanding  []string                  `json:"outstanding_documents"`
	Payment      *PaymentReadinessResponse `json:"payment,omitempty"`
	PaymentError string                    `json:"payment_error,omitempty"`
}

// ApprovalResponse is returned by Approve and Provision
type ApprovalResponse struct {
	Application ApplicationResponse `json:"application"`
	StudentID   string              `json:"student_id"`
	Replayed    bool                `json:"replayed"`
}

// StatusCountsResponse counts applications per status
type StatusCountsResponse struct {
	Pending     int64 `json:"pending"`
	UnderReview int64 `json:"under_review"`
	Verified    int64 `json:"verified"`
	Approved    int64 `json:"approved"`
	Rejected    int64 `json:"rejected"`
	Total       int64 `json:"total"`
}

// ==================== Mapping ====================

func toOverrideResponse(o *enrollment.Override) *OverrideResponse {
	if o == nil {
		return nil
	}
	return &OverrideResponse{ReviewerID: o.ReviewerID, Justification: o.Justification, At: o.At}
}

// ToStateView renders the status variant with only the fields valid in that status
func ToStateView(state enrollment.ApplicationState) interface{} {
	kind := state.Status().String()
	switch s := state.(type) {
	case enrollment.UnderReviewState:
		return UnderReviewStateView{Kind: kind, StartedAt: s.StartedAt, ReviewerID: s.ReviewerID}
	case enrollment.VerifiedState:
		return VerifiedStateView{Kind: kind, VerifiedAt: s.VerifiedAt, VerifiedBy: s.VerifiedBy, Override: toOverrideResponse(s.Override)}
	case enrollment.ApprovedState:
		return ApprovedStateView{Kind: kind, StudentID: s.StudentID, ApprovedAt: s.ApprovedAt, ApprovedBy: s.ApprovedBy, Override: toOverrideResponse(s.Override)}
	case enrollment.RejectedState:
		return RejectedStateView{Kind: kind, Reason: s.Reason, RejectedAt: s.RejectedAt, RejectedBy: s.RejectedBy}
	case enrollment.PendingState:
		return PendingStateView{Kind: kind, SubmittedAt: s.SubmittedAt}
	}
	return PendingStateView{Kind: kind}
}

// ToProfileResponse converts a profile snapshot
func ToProfileResponse(p enrollment.ApplicantProfile) ProfileResponse {
	guardians := make([]GuardianResponse, len(p.Guardians))
	for i, g := range p.Guardians {
		guardians[i] = GuardianResponse{Name: g.Name, Relationship: g.Relationship, Phone: g.Phone, Email: g.Email}
	}
	birth := ""
	if !p.BirthDate.IsZero() {
		birth = p.BirthDate.Format(BirthDateLayout)
	}
	return ProfileResponse{
		FullName:    p.FullName(),
		FirstName:   p.FirstName,
		MiddleName:  p.MiddleName,
		LastName:    p.LastName,
		BirthDate:   birth,
		BirthPlace:  p.BirthPlace,
		Gender:      string(p.Gender),
		Address:     p.Address,
		PreviousLRN: p.PreviousLRN,
		Guardians:   guardians,
	}
}

// ToApplicationResponse converts a domain Application to a response
func ToApplicationResponse(app *enrollment.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:               app.ID,
		ConfirmationCode: app.ConfirmationCode,
		AcademicPeriod:   app.AcademicPeriod,
		GradeLevel:       app.GradeLevel,
		Category:         string(app.Category),
		Status:           string(app.Status),
		Step:             app.Step(),
		State:            ToStateView(app.State()),
		Profile:          ToProfileResponse(app.Profile),
		Version:          app.Version,
		CreatedAt:        app.CreatedAt,
		UpdatedAt:        app.UpdatedAt,
	}
}

// ToApplicationListItemResponse converts a domain Application to a list item
func ToApplicationListItemResponse(app *enrollment.Application) ApplicationListItemResponse {
	return ApplicationListItemResponse{
		ID:               app.ID,
		ConfirmationCode: app.ConfirmationCode,
		ApplicantName:    app.Profile.FullName(),
		AcademicPeriod:   app.AcademicPeriod,
		GradeLevel:       app.GradeLevel,
		Category:         string(app.Category),
		Status:           string(app.Status),
		Step:             app.Step(),
		Version:          app.Version,
		CreatedAt:        app.CreatedAt,
	}
}

// ToDocumentResponse converts a domain Document to a response
func ToDocumentResponse(doc *enrollment.Document) DocumentResponse {
	return DocumentResponse{
		ID:                doc.ID,
		ApplicationID:     doc.ApplicationID,
		DocumentType:      doc.DocumentType,
		Status:            string(doc.Status),
		FileRef:           doc.FileRef,
		ResubmissionCount: doc.ResubmissionCount,
		IsCurrentVersion:  doc.IsCurrentVersion,
		SupersedesID:      doc.SupersedesID,
		ReviewerID:        doc.ReviewerID,
		ReviewedAt:        doc.ReviewedAt,
		RejectionReason:   doc.RejectionReason,
		Version:           doc.Version,
		CreatedAt:         doc.CreatedAt,
	}
}

// ToDocumentResponses converts a slice of documents
func ToDocumentResponses(docs []enrollment.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = ToDocumentResponse(&docs[i])
	}
	return out
}

// ToPaymentReadinessResponse converts a gate result
func ToPaymentReadinessResponse(applicationID uuid.UUID, r enrollment.PaymentReadiness) PaymentReadinessResponse {
	return PaymentReadinessResponse{
		ApplicationID: applicationID,
		TotalRequired: r.TotalRequired,
		TotalPaid:     r.TotalPaid,
		Outstanding:   r.Outstanding(),
		Ready:         r.Ready,
		StatusLabel:   string(r.StatusLabel),
	}
}
