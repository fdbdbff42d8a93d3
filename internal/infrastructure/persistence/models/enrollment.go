package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/shopspring/decimal"
)

// GuardianJSON is one guardian as stored in the guardians JSON column
type GuardianJSON struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

// ApplicationModel is the persistence model for the Application aggregate root.
type ApplicationModel struct {
	AggregateModel
	ConfirmationCode string                        `gorm:"type:varchar(32);not null;uniqueIndex"`
	AcademicPeriod   string                        `gorm:"type:varchar(20);not null;index"`
	GradeLevel       string                        `gorm:"type:varchar(30);not null;index"`
	Category         enrollment.EnrollmentCategory `gorm:"type:varchar(20);not null"`
	Status           enrollment.ApplicationStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`

	FirstName   string         `gorm:"type:varchar(100);not null"`
	MiddleName  string         `gorm:"type:varchar(100)"`
	LastName    string         `gorm:"type:varchar(100);not null;index"`
	BirthDate   time.Time      `gorm:"type:date;not null"`
	BirthPlace  string         `gorm:"type:varchar(200)"`
	Gender      string         `gorm:"type:varchar(20)"`
	Address     string         `gorm:"type:varchar(500)"`
	PreviousLRN string         `gorm:"column:previous_lrn;type:varchar(20)"`
	Guardians   []GuardianJSON `gorm:"type:jsonb;serializer:json;not null"`

	RejectionReason *string `gorm:"type:text"`
	RejectedAt      *time.Time
	RejectedBy      string `gorm:"type:varchar(100)"`

	ProvisionedStudentID *string `gorm:"type:varchar(30);index"`
	ProvisionedAt        *time.Time

	ReviewStartedAt *time.Time
	ReviewStartedBy string `gorm:"type:varchar(100)"`
	VerifiedAt      *time.Time
	VerifiedBy      string `gorm:"type:varchar(100)"`
	ApprovedAt      *time.Time
	ApprovedBy      string `gorm:"type:varchar(100)"`
	ApprovalKey     string `gorm:"type:varchar(200)"`

	VerificationOverrideBy            string `gorm:"type:varchar(100)"`
	VerificationOverrideJustification string `gorm:"type:text"`
	VerificationOverrideAt            *time.Time
	ApprovalOverrideBy                string `gorm:"type:varchar(100)"`
	ApprovalOverrideJustification     string `gorm:"type:text"`
	ApprovalOverrideAt                *time.Time
}

// TableName returns the table name for GORM
func (ApplicationModel) TableName() string {
	return "enrollment_applications"
}

// ToDomain converts the persistence model to a domain Application.
func (m *ApplicationModel) ToDomain() *enrollment.Application {
	guardians := make([]enrollment.GuardianContact, len(m.Guardians))
	for i, g := range m.Guardians {
		guardians[i] = enrollment.GuardianContact{Name: g.Name, Relationship: g.Relationship, Phone: g.Phone, Email: g.Email}
	}
	app := &enrollment.Application{
		BaseAggregateRoot: m.Aggregate(),
		ConfirmationCode:  m.ConfirmationCode,
		AcademicPeriod:    m.AcademicPeriod,
		GradeLevel:        m.GradeLevel,
		Category:          m.Category,
		Status:            m.Status,
		Profile: enrollment.ApplicantProfile{
			FirstName:   m.FirstName,
			MiddleName:  m.MiddleName,
			LastName:    m.LastName,
			BirthDate:   m.BirthDate,
			BirthPlace:  m.BirthPlace,
			Gender:      enrollment.Gender(m.Gender),
			Address:     m.Address,
			PreviousLRN: m.PreviousLRN,
			Guardians:   guardians,
		},
		RejectedAt:           m.RejectedAt,
		RejectedBy:           m.RejectedBy,
		ProvisionedAt:        m.ProvisionedAt,
		ReviewStartedAt:      m.ReviewStartedAt,
		ReviewStartedBy:      m.ReviewStartedBy,
		VerifiedAt:           m.VerifiedAt,
		VerifiedBy:           m.VerifiedBy,
		VerificationOverride: toOverride(m.VerificationOverrideBy, m.VerificationOverrideJustification, m.VerificationOverrideAt),
		ApprovedAt:           m.ApprovedAt,
		ApprovedBy:           m.ApprovedBy,
		ApprovalOverride:     toOverride(m.ApprovalOverrideBy, m.ApprovalOverrideJustification, m.ApprovalOverrideAt),
		ApprovalKey:          m.ApprovalKey,
	}
	if m.RejectionReason != nil {
		app.RejectionReason = *m.RejectionReason
	}
	if m.ProvisionedStudentID != nil {
		app.ProvisionedStudentID = *m.ProvisionedStudentID
	}
	return app
}

// FromDomain populates the persistence model from a domain Application.
func (m *ApplicationModel) FromDomain(a *enrollment.Application) {
	m.SetAggregate(a.BaseAggregateRoot)
	m.ConfirmationCode = a.ConfirmationCode
	m.AcademicPeriod = a.AcademicPeriod
	m.GradeLevel = a.GradeLevel
	m.Category = a.Category
	m.Status = a.Status

	p := a.Profile
	m.FirstName = p.FirstName
	m.MiddleName = p.MiddleName
	m.LastName = p.LastName
	m.BirthDate = p.BirthDate
	m.BirthPlace = p.BirthPlace
	m.Gender = string(p.Gender)
	m.Address = p.Address
	m.PreviousLRN = p.PreviousLRN
	m.Guardians = make([]GuardianJSON, len(p.Guardians))
	for i, g := range p.Guardians {
		m.Guardians[i] = GuardianJSON{Name: g.Name, Relationship: g.Relationship, Phone: g.Phone, Email: g.Email}
	}

	m.RejectionReason = nullableString(a.RejectionReason)
	m.RejectedAt = a.RejectedAt
	m.RejectedBy = a.RejectedBy
	m.ProvisionedStudentID = nullableString(a.ProvisionedStudentID)
	m.ProvisionedAt = a.ProvisionedAt
	m.ReviewStartedAt = a.ReviewStartedAt
	m.ReviewStartedBy = a.ReviewStartedBy
	m.VerifiedAt = a.VerifiedAt
	m.VerifiedBy = a.VerifiedBy
	m.ApprovedAt = a.ApprovedAt
	m.ApprovedBy = a.ApprovedBy
	m.ApprovalKey = a.ApprovalKey
	m.VerificationOverrideBy, m.VerificationOverrideJustification, m.VerificationOverrideAt = fromOverride(a.VerificationOverride)
	m.ApprovalOverrideBy, m.ApprovalOverrideJustification, m.ApprovalOverrideAt = fromOverride(a.ApprovalOverride)
}

// ApplicationModelFromDomain creates a new persistence model from a domain Application.
func ApplicationModelFromDomain(a *enrollment.Application) *ApplicationModel {
	m := &ApplicationModel{}
	m.FromDomain(a)
	return m
}

// ImmutableColumns are never rewritten after the application is created
var ImmutableColumns = []string{"id", "created_at", "confirmation_code", "academic_period", "grade_level", "category"}

// DocumentModel is the persistence model for one document version.
// At most one row per (application_id, document_type) is the current version.
type DocumentModel struct {
	BaseModel
	ApplicationID     uuid.UUID                 `gorm:"type:uuid;not null;index;uniqueIndex:idx_enrollment_documents_current,priority:1,where:is_current_version = true"`
	DocumentType      string                    `gorm:"type:varchar(50);not null;uniqueIndex:idx_enrollment_documents_current,priority:2,where:is_current_version = true"`
	Status            enrollment.DocumentStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	FileRef           string                    `gorm:"type:varchar(500)"`
	ResubmissionCount int                       `gorm:"not null;default:0"`
	IsCurrentVersion  bool                      `gorm:"not null;default:true"`
	SupersedesID      *uuid.UUID                `gorm:"type:uuid"`
	ReviewerID        string                    `gorm:"type:varchar(100)"`
	ReviewedAt        *time.Time
	RejectionReason   string `gorm:"type:text"`
	Version           int    `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "enrollment_documents"
}

// ToDomain converts the persistence model to a domain Document.
func (m *DocumentModel) ToDomain() *enrollment.Document {
	return &enrollment.Document{
		BaseEntity:        m.Entity(),
		ApplicationID:     m.ApplicationID,
		DocumentType:      m.DocumentType,
		Status:            m.Status,
		FileRef:           m.FileRef,
		ResubmissionCount: m.ResubmissionCount,
		IsCurrentVersion:  m.IsCurrentVersion,
		SupersedesID:      m.SupersedesID,
		ReviewerID:        m.ReviewerID,
		ReviewedAt:        m.ReviewedAt,
		RejectionReason:   m.RejectionReason,
		Version:           m.Version,
	}
}

// FromDomain populates the persistence model from a domain Document.
func (m *DocumentModel) FromDomain(d *enrollment.Document) {
	m.SetEntity(d.BaseEntity)
	m.ApplicationID = d.ApplicationID
	m.DocumentType = d.DocumentType
	m.Status = d.Status
	m.FileRef = d.FileRef
	m.ResubmissionCount = d.ResubmissionCount
	m.IsCurrentVersion = d.IsCurrentVersion
	m.SupersedesID = d.SupersedesID
	m.ReviewerID = d.ReviewerID
	m.ReviewedAt = d.ReviewedAt
	m.RejectionReason = d.RejectionReason
	m.Version = d.Version
}

// DocumentModelFromDomain creates a new persistence model from a domain Document.
func DocumentModelFromDomain(d *enrollment.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// StudentModel is the persistence model for the student directory
type StudentModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	StudentNumber string     `gorm:"type:varchar(30);not null;uniqueIndex"`
	ApplicationID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	FirstName     string     `gorm:"type:varchar(100);not null"`
	LastName      string     `gorm:"type:varchar(100);not null"`
	GradeLevel    string     `gorm:"type:varchar(30)"`
	CreatedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the persistence model to a domain Student.
func (m *StudentModel) ToDomain() *enrollment.Student {
	return &enrollment.Student{
		ID:            m.ID,
		StudentNumber: m.StudentNumber,
		ApplicationID: m.ApplicationID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		GradeLevel:    m.GradeLevel,
		CreatedAt:     m.CreatedAt,
	}
}

// StudentModelFromDomain creates a new persistence model from a domain Student.
func StudentModelFromDomain(s *enrollment.Student) *StudentModel {
	return &StudentModel{
		ID:            s.ID,
		StudentNumber: s.StudentNumber,
		ApplicationID: s.ApplicationID,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		GradeLevel:    s.GradeLevel,
		CreatedAt:     s.CreatedAt,
	}
}

// StudentLinkModel ties an application to an existing student it re-enrolls.
// Students minted for an application carry the application id themselves.
type StudentLinkModel struct {
	ApplicationID uuid.UUID `gorm:"type:uuid;primary_key"`
	StudentNumber string    `gorm:"type:varchar(30);not null;index"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StudentLinkModel) TableName() string {
	return "enrollment_student_links"
}

// PaymentModel is a payment recorded against an application by the cashier's office.
// The enrollment service only reads this table.
type PaymentModel struct {
	ID            uuid.UUID                `gorm:"type:uuid;primary_key"`
	ApplicationID uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Status        enrollment.PaymentStatus `gorm:"type:varchar(20);not null"`
	Reference     string                   `gorm:"type:varchar(100)"`
	RecordedAt    time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "enrollment_payments"
}

// ToDomain converts the persistence model to a ledger payment.
func (m *PaymentModel) ToDomain() enrollment.LedgerPayment {
	return enrollment.LedgerPayment{Amount: m.Amount, Status: m.Status}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toOverride(by, justification string, at *time.Time) *enrollment.Override {
	if by == "" {
		return nil
	}
	o := &enrollment.Override{ReviewerID: by, Justification: justification}
	if at != nil {
		o.At = *at
	}
	return o
}

func fromOverride(o *enrollment.Override) (string, string, *time.Time) {
	if o == nil {
		return "", "", nil
	}
	at := o.At
	return o.ReviewerID, o.Justification, &at
}
