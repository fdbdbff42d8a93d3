package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockApplicationRepository is a mock implementation of ApplicationRepository
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*enrollment.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollment.Application), args.Error(1)
}

func (m *MockApplicationRepository) FindByConfirmationCode(ctx context.Context, code string) (*enrollment.Application, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollment.Application), args.Error(1)
}

func (m *MockApplicationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]enrollment.Application, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]enrollment.Application), args.Error(1)
}

func (m *MockApplicationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockApplicationRepository) CountByStatus(ctx context.Context) (map[enrollment.ApplicationStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[enrollment.ApplicationStatus]int64), args.Error(1)
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *enrollment.Application, documents []enrollment.Document) error {
	args := m.Called(ctx, app, documents)
	return args.Error(0)
}

func (m *MockApplicationRepository) SaveWithLock(ctx context.Context, app *enrollment.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*enrollment.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollment.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindCurrentByApplication(ctx context.Context, applicationID uuid.UUID) ([]enrollment.Document, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]enrollment.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindHistory(ctx context.Context, applicationID uuid.UUID, documentType string) ([]enrollment.Document, error) {
	args := m.Called(ctx, applicationID, documentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]enrollment.Document), args.Error(1)
}

func (m *MockDocumentRepository) SaveWithLock(ctx context.Context, doc *enrollment.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) Supersede(ctx context.Context, prev, next *enrollment.Document) error {
	args := m.Called(ctx, prev, next)
	return args.Error(0)
}

// MockStudentDirectory is a mock implementation of StudentDirectory
type MockStudentDirectory struct {
	mock.Mock
}

func (m *MockStudentDirectory) FindByStudentNumber(ctx context.Context, number string) (*enrollment.Student, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollment.Student), args.Error(1)
}

func (m *MockStudentDirectory) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*enrollment.Student, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollment.Student), args.Error(1)
}

func (m *MockStudentDirectory) LinkApplication(ctx context.Context, applicationID uuid.UUID, studentNumber string) error {
	args := m.Called(ctx, applicationID, studentNumber)
	return args.Error(0)
}

func (m *MockStudentDirectory) Create(ctx context.Context, student *enrollment.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *MockStudentDirectory) GenerateStudentNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockRequirementsProvider is a mock implementation of RequirementsProvider
type MockRequirementsProvider struct {
	mock.Mock
}

func (m *MockRequirementsProvider) RequiredDocumentTypes(ctx context.Context, gradeLevel string, category enrollment.EnrollmentCategory) ([]string, error) {
	args := m.Called(ctx, gradeLevel, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockPaymentLedger is a mock implementation of PaymentLedger
type MockPaymentLedger struct {
	mock.Mock
}

func (m *MockPaymentLedger) PaymentsFor(ctx context.Context, applicationID uuid.UUID) ([]enrollment.LedgerPayment, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]enrollment.LedgerPayment), args.Error(1)
}

// MockFileReferenceChecker is a mock implementation of FileReferenceChecker
type MockFileReferenceChecker struct {
	mock.Mock
}

func (m *MockFileReferenceChecker) Exists(ctx context.Context, fileRef string) (bool, error) {
	args := m.Called(ctx, fileRef)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// Test helpers

var requiredTypes = []string{"BIRTH_CERTIFICATE", "REPORT_CARD", "GOOD_MORAL"}

func testProfileInput() ProfileInput {
	return ProfileInput{
		FirstName: "Maria",
		LastName:  "Santos",
		BirthDate: "2015-03-14",
		Gender:    "FEMALE",
		Guardians: []GuardianInput{{Name: "Ana Santos", Relationship: "Mother", Phone: "+63 900 000 0000"}},
	}
}

func newTestApplication(status enrollment.ApplicationStatus) *enrollment.Application {
	profile, _ := testProfileInput().ToDomain()
	app, err := enrollment.NewApplication(enrollment.NewConfirmationCode(time.Now()), "2026-2027", "GRADE_4", enrollment.CategoryNew, profile)
	if err != nil {
		panic(err)
	}
	switch status {
	case enrollment.StatusUnderReview:
		_ = app.BeginReview("reviewer-1")
	case enrollment.StatusVerified:
		_ = app.BeginReview("reviewer-1")
		_ = app.MarkVerified("reviewer-1", nil, nil)
	case enrollment.StatusApproved:
		_ = app.BeginReview("reviewer-1")
		_ = app.MarkVerified("reviewer-1", nil, nil)
		_ = app.Approve("reviewer-1", "", nil)
	case enrollment.StatusRejected:
		_ = app.Reject("reviewer-1", "incomplete")
	}
	app.ClearEvents()
	return app
}

func newTestDocument(appID uuid.UUID, docType string, status enrollment.DocumentStatus) *enrollment.Document {
	doc, err := enrollment.NewDocument(appID, docType)
	if err != nil {
		panic(err)
	}
	switch status {
	case enrollment.DocumentStatusVerified:
		_ = doc.Verify("reviewer-1")
	case enrollment.DocumentStatusRejected:
		_ = doc.Reject("reviewer-1", "blurry")
	}
	return doc
}

func approvedPayment(amount string) enrollment.LedgerPayment {
	return enrollment.LedgerPayment{Amount: decimal.RequireFromString(amount), Status: enrollment.PaymentStatusApproved}
}

func testGateConfig() GateConfig {
	return GateConfig{
		Timeout:          200 * time.Millisecond,
		DefaultThreshold: decimal.RequireFromString("5000"),
		Thresholds: map[enrollment.EnrollmentCategory]decimal.Decimal{
			enrollment.CategoryContinuing: decimal.RequireFromString("3000"),
		},
	}
}

// bumpVersion makes a SaveWithLock mock behave like the repository on success
func bumpVersion(args mock.Arguments) {
	args.Get(1).(*enrollment.Application).IncrementVersion()
}

type serviceFixture struct {
	apps     *MockApplicationRepository
	docs     *MockDocumentRepository
	students *MockStudentDirectory
	reqs     *MockRequirementsProvider
	ledger   *MockPaymentLedger
	registry *DocumentRegistry
	gate     *PaymentReadinessGate
	prov     *AdmissionProvisioner
	svc      *EnrollmentService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		apps:     new(MockApplicationRepository),
		docs:     new(MockDocumentRepository),
		students: new(MockStudentDirectory),
		reqs:     new(MockRequirementsProvider),
		ledger:   new(MockPaymentLedger),
	}
	f.registry = NewDocumentRegistry(f.apps, f.docs, f.reqs, nil)
	f.gate = NewPaymentReadinessGate(f.apps, f.ledger, testGateConfig(), nil)
	f.prov = NewAdmissionProvisioner(f.apps, f.students, nil)
	f.svc = NewEnrollmentService(f.apps, f.docs, f.reqs, f.registry, f.gate, f.prov, nil)
	return f
}
