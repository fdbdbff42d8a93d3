package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnrollmentService_CreateApplication(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds one pending document per required type", func(t *testing.T) {
		f := newServiceFixture()
		f.reqs.On("RequiredDocumentTypes", ctx, "GRADE_4", enrollment.CategoryNew).Return(requiredTypes, nil)
		f.apps.On("Create", ctx, mock.AnythingOfType("*enrollment.Application"), mock.MatchedBy(func(docs []enrollment.Document) bool {
			if len(docs) != len(requiredTypes) {
				return false
			}
			for i, d := range docs {
				if d.DocumentType != requiredTypes[i] || d.Status != enrollment.DocumentStatusPending || !d.IsCurrentVersion {
					return false
				}
			}
			return true
		})).Return(nil)

		resp, err := f.svc.CreateApplication(ctx, CreateApplicationRequest{
			AcademicPeriod: "2026-2027",
			GradeLevel:     "GRADE_4",
			Category:       "NEW",
			Profile:        testProfileInput(),
		})
		require.NoError(t, err)
		assert.Equal(t, "PENDING", resp.Application.Status)
		assert.Equal(t, 1, resp.Application.Step.Number)
		assert.Len(t, resp.Documents, 3)
		assert.Equal(t, requiredTypes, resp.Outstanding)
		assert.Equal(t, PendingStateView{Kind: "PENDING", SubmittedAt: resp.Application.CreatedAt}, resp.Application.State)
		f.apps.AssertExpectations(t)
	})

	t.Run("bad birth date", func(t *testing.T) {
		f := newServiceFixture()
		in := testProfileInput()
		in.BirthDate = "14/03/2015"

		_, err := f.svc.CreateApplication(ctx, CreateApplicationRequest{AcademicPeriod: "2026-2027", GradeLevel: "GRADE_4", Category: "NEW", Profile: in})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "birth_date", de.Field)
	})
}

func TestEnrollmentService_BeginReview(t *testing.T) {
	ctx := context.Background()

	t.Run("success bumps the version", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusPending)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.apps.On("SaveWithLock", ctx, app).Return(nil).Run(bumpVersion)

		resp, err := f.svc.BeginReview(ctx, app.ID, "reviewer-1", TransitionRequest{ExpectedVersion: 1})
		require.NoError(t, err)
		assert.Equal(t, "UNDER_REVIEW", resp.Status)
		assert.Equal(t, 2, resp.Version)
		assert.Equal(t, "Document Review", resp.Step.Label)
	})

	t.Run("stale expected version", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusPending)
		app.Version = 4
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

		_, err := f.svc.BeginReview(ctx, app.ID, "reviewer-1", TransitionRequest{ExpectedVersion: 3})
		assert.True(t, errors.Is(err, enrollment.ErrConflict))
		assert.Equal(t, enrollment.StatusPending, app.Status)
		f.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("unknown application", func(t *testing.T) {
		f := newServiceFixture()
		id := uuid.New()
		f.apps.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.svc.BeginReview(ctx, id, "reviewer-1", TransitionRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrNotFound))
	})

	t.Run("reviewer required", func(t *testing.T) {
		f := newServiceFixture()
		_, err := f.svc.BeginReview(ctx, uuid.New(), "", TransitionRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrValidation))
	})
}

func TestEnrollmentService_MarkVerified(t *testing.T) {
	ctx := context.Background()

	setup := func(docStatuses ...enrollment.DocumentStatus) (*serviceFixture, *enrollment.Application) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusUnderReview)
		docs := make([]enrollment.Document, len(docStatuses))
		for i, st := range docStatuses {
			docs[i] = *newTestDocument(app.ID, requiredTypes[i], st)
		}
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.reqs.On("RequiredDocumentTypes", ctx, "GRADE_4", enrollment.CategoryNew).Return(requiredTypes, nil)
		f.docs.On("FindCurrentByApplication", ctx, app.ID).Return(docs, nil)
		f.apps.On("SaveWithLock", ctx, app).Return(nil).Run(bumpVersion)
		return f, app
	}

	t.Run("outstanding document without override", func(t *testing.T) {
		f, app := setup(enrollment.DocumentStatusVerified, enrollment.DocumentStatusVerified, enrollment.DocumentStatusPending)

		_, err := f.svc.MarkVerified(ctx, app.ID, "reviewer-1", MarkVerifiedRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrPreconditionFailed))
		assert.Contains(t, err.Error(), "GOOD_MORAL")
		assert.Equal(t, enrollment.StatusUnderReview, app.Status)
		f.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("all verified", func(t *testing.T) {
		f, app := setup(enrollment.DocumentStatusVerified, enrollment.DocumentStatusVerified, enrollment.DocumentStatusVerified)

		resp, err := f.svc.MarkVerified(ctx, app.ID, "reviewer-1", MarkVerifiedRequest{})
		require.NoError(t, err)
		assert.Equal(t, "VERIFIED", resp.Status)
		state := resp.State.(VerifiedStateView)
		assert.Nil(t, state.Override)
	})

	t.Run("override without justification is refused", func(t *testing.T) {
		f, app := setup(enrollment.DocumentStatusPending, enrollment.DocumentStatusPending, enrollment.DocumentStatusPending)

		_, err := f.svc.MarkVerified(ctx, app.ID, "reviewer-1", MarkVerifiedRequest{Override: &OverrideInput{ReviewerID: "registrar"}})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, enrollment.CodeValidation, de.Code)
		assert.Equal(t, "override.justification", de.Field)
		assert.Equal(t, enrollment.StatusUnderReview, app.Status)
	})

	t.Run("attributed override", func(t *testing.T) {
		f, app := setup(enrollment.DocumentStatusVerified, enrollment.DocumentStatusPending, enrollment.DocumentStatusRejected)

		resp, err := f.svc.MarkVerified(ctx, app.ID, "reviewer-1", MarkVerifiedRequest{
			Override: &OverrideInput{ReviewerID: "registrar", Justification: "originals on file"},
		})
		require.NoError(t, err)
		state := resp.State.(VerifiedStateView)
		require.NotNil(t, state.Override)
		assert.Equal(t, "registrar", state.Override.ReviewerID)
		assert.Equal(t, "originals on file", state.Override.Justification)
	})
}

type approveFixture struct {
	*serviceFixture
	app *enrollment.Application
}

func newApproveFixture(ctx context.Context, paid string) *approveFixture {
	f := newServiceFixture()
	app := newTestApplication(enrollment.StatusVerified)
	f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
	f.apps.On("SaveWithLock", mock.Anything, app).Return(nil).Run(bumpVersion)
	f.ledger.On("PaymentsFor", mock.Anything, app.ID).Return([]enrollment.LedgerPayment{approvedPayment(paid)}, nil)
	f.students.On("FindByApplicationID", mock.Anything, app.ID).Return(nil, shared.ErrNotFound)
	f.students.On("GenerateStudentNumber", mock.Anything).Return("STU-2026-00001", nil)
	f.students.On("Create", mock.Anything, mock.Anything).Return(nil)
	return &approveFixture{serviceFixture: f, app: app}
}

func TestEnrollmentService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("ready gate approves and provisions once", func(t *testing.T) {
		f := newApproveFixture(ctx, "5000")

		first, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{IdempotencyKey: "req-1"})
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", first.Application.Status)
		assert.Equal(t, "STU-2026-00001", first.StudentID)
		assert.False(t, first.Replayed)
		state := first.Application.State.(ApprovedStateView)
		require.NotNil(t, state.StudentID)
		assert.Equal(t, "STU-2026-00001", *state.StudentID)

		second, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{IdempotencyKey: "req-1"})
		require.NoError(t, err)
		assert.Equal(t, first.StudentID, second.StudentID)
		assert.True(t, second.Replayed)

		f.students.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("approve of an approved application with another key", func(t *testing.T) {
		f := newApproveFixture(ctx, "5000")

		_, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{})
		require.NoError(t, err)

		_, err = f.svc.Approve(ctx, f.app.ID, "reviewer-2", ApproveRequest{IdempotencyKey: "other"})
		assert.True(t, errors.Is(err, enrollment.ErrAlreadyTerminal))
		f.students.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("keyless retry by the same reviewer returns the student", func(t *testing.T) {
		f := newApproveFixture(ctx, "5000")

		first, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{})
		require.NoError(t, err)
		assert.Equal(t, "STU-2026-00001", first.StudentID)

		second, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{ExpectedVersion: 1})
		require.NoError(t, err)
		assert.Equal(t, first.StudentID, second.StudentID)
		assert.True(t, second.Replayed)

		_, err = f.svc.Approve(ctx, f.app.ID, "reviewer-2", ApproveRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrAlreadyTerminal))
		f.students.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("gate not ready", func(t *testing.T) {
		f := newApproveFixture(ctx, "1000")

		_, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, enrollment.CodePreconditionFailed, de.Code)
		assert.Equal(t, "payment", de.Field)
		assert.Equal(t, enrollment.StatusVerified, f.app.Status)
	})

	t.Run("gate unavailable changes nothing", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusVerified)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.ledger.On("PaymentsFor", mock.Anything, app.ID).Return(nil, errors.New("ledger offline"))

		_, err := f.svc.Approve(ctx, app.ID, "reviewer-1", ApproveRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrGateUnavailable))
		assert.Equal(t, enrollment.StatusVerified, app.Status)
		assert.Equal(t, 1, app.Version)
		f.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("payment override skips the gate", func(t *testing.T) {
		f := newApproveFixture(ctx, "0")

		resp, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{
			PaymentOverride: &OverrideInput{ReviewerID: "principal", Justification: "scholarship grantee"},
		})
		require.NoError(t, err)
		state := resp.Application.State.(ApprovedStateView)
		require.NotNil(t, state.Override)
		assert.Equal(t, "principal", state.Override.ReviewerID)
		f.ledger.AssertNotCalled(t, "PaymentsFor", mock.Anything, mock.Anything)
	})

	t.Run("requires verified", func(t *testing.T) {
		for _, status := range []enrollment.ApplicationStatus{enrollment.StatusPending, enrollment.StatusUnderReview} {
			f := newServiceFixture()
			app := newTestApplication(status)
			f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

			_, err := f.svc.Approve(ctx, app.ID, "reviewer-1", ApproveRequest{})
			assert.True(t, errors.Is(err, enrollment.ErrPreconditionFailed), "status %s", status)
			assert.Equal(t, status, app.Status)
		}
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusRejected)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

		_, err := f.svc.Approve(ctx, app.ID, "reviewer-1", ApproveRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrTerminalState))
	})

	t.Run("provisioning failure leaves an approved gap that provision repairs", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusVerified)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.apps.On("SaveWithLock", mock.Anything, app).Return(nil).Run(bumpVersion)
		f.ledger.On("PaymentsFor", mock.Anything, app.ID).Return([]enrollment.LedgerPayment{approvedPayment("5000")}, nil)
		f.students.On("FindByApplicationID", mock.Anything, app.ID).Return(nil, shared.ErrNotFound)
		f.students.On("GenerateStudentNumber", mock.Anything).Return("", errors.New("sequence unavailable")).Once()

		_, err := f.svc.Approve(ctx, app.ID, "reviewer-1", ApproveRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrProvisioning))
		assert.Equal(t, enrollment.StatusApproved, app.Status)
		assert.True(t, app.HasProvisioningGap())

		f.students.On("GenerateStudentNumber", mock.Anything).Return("STU-2026-00002", nil)
		f.students.On("Create", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.Provision(ctx, app.ID, ProvisionRequest{})
		require.NoError(t, err)
		assert.Equal(t, "STU-2026-00002", resp.StudentID)
		assert.False(t, app.HasProvisioningGap())

		again, err := f.svc.Provision(ctx, app.ID, ProvisionRequest{})
		require.NoError(t, err)
		assert.Equal(t, "STU-2026-00002", again.StudentID)
		assert.True(t, again.Replayed)
		f.students.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("unknown preserved student is refused before approving", func(t *testing.T) {
		f := newApproveFixture(ctx, "5000")
		f.students.On("FindByStudentNumber", mock.Anything, "STU-1999-00001").Return(nil, shared.ErrNotFound)

		_, err := f.svc.Approve(ctx, f.app.ID, "reviewer-1", ApproveRequest{
			PreserveExistingStudentID: true,
			ExistingStudentID:         "STU-1999-00001",
		})
		assert.True(t, errors.Is(err, enrollment.ErrValidation))
		assert.Equal(t, enrollment.StatusVerified, f.app.Status)
	})
}

func TestEnrollmentService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("empty reason leaves the application pending", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusPending)

		_, err := f.svc.Reject(ctx, app.ID, "reviewer-1", RejectRequest{Reason: ""})
		assert.True(t, errors.Is(err, enrollment.ErrValidation))
		assert.Equal(t, enrollment.StatusPending, app.Status)
	})

	t.Run("rejects with reason", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusUnderReview)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.apps.On("SaveWithLock", ctx, app).Return(nil).Run(bumpVersion)

		resp, err := f.svc.Reject(ctx, app.ID, "reviewer-1", RejectRequest{Reason: "Falsified report card"})
		require.NoError(t, err)
		state := resp.State.(RejectedStateView)
		assert.Equal(t, "Falsified report card", state.Reason)
		assert.Equal(t, "Closed", resp.Step.Label)
	})

	t.Run("approved stays approved", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusApproved)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

		_, err := f.svc.Reject(ctx, app.ID, "reviewer-1", RejectRequest{Reason: "changed our mind"})
		assert.True(t, errors.Is(err, enrollment.ErrTerminalState))
		assert.Equal(t, enrollment.StatusApproved, app.Status)
		assert.Empty(t, app.RejectionReason)
	})
}

func TestEnrollmentService_UpdateApplicantProfile(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	app := newTestApplication(enrollment.StatusRejected)
	f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

	_, err := f.svc.UpdateApplicantProfile(ctx, app.ID, UpdateProfileRequest{Profile: testProfileInput()})
	assert.True(t, errors.Is(err, enrollment.ErrTerminalState))
}

func TestEnrollmentService_RequestResubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("under review supersedes the document without touching the application", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "REPORT_CARD", enrollment.DocumentStatusRejected)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.docs.On("Supersede", ctx, doc, mock.Anything).Return(nil)

		resp, err := f.svc.RequestResubmission(ctx, app.ID, doc.ID, "reviewer-1", TransitionRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.ResubmissionCount)
		assert.Equal(t, enrollment.StatusUnderReview, app.Status)
		assert.Equal(t, 1, app.Version)
		f.apps.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("not under review", func(t *testing.T) {
		f := newServiceFixture()
		app := newTestApplication(enrollment.StatusVerified)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

		_, err := f.svc.RequestResubmission(ctx, app.ID, uuid.New(), "reviewer-1", TransitionRequest{})
		assert.True(t, errors.Is(err, enrollment.ErrPreconditionFailed))
	})
}

func TestEnrollmentService_CountByStatus(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	f.apps.On("CountByStatus", ctx).Return(map[enrollment.ApplicationStatus]int64{
		enrollment.StatusPending:  4,
		enrollment.StatusApproved: 2,
	}, nil)

	resp, err := f.svc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Pending)
	assert.Equal(t, int64(2), resp.Approved)
	assert.Equal(t, int64(6), resp.Total)
}

func TestEnrollmentService_GetStatus_LedgerDown(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	app := newTestApplication(enrollment.StatusVerified)
	f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
	f.docs.On("FindCurrentByApplication", ctx, app.ID).Return([]enrollment.Document{}, nil)
	f.reqs.On("RequiredDocumentTypes", ctx, "GRADE_4", enrollment.CategoryNew).Return(requiredTypes, nil)
	f.ledger.On("PaymentsFor", mock.Anything, app.ID).Return(nil, errors.New("ledger offline"))

	resp, err := f.svc.GetStatus(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, resp.Payment)
	assert.Contains(t, resp.PaymentError, "ledger offline")
	assert.Equal(t, requiredTypes, resp.Outstanding)
	assert.Equal(t, 3, resp.Application.Step.Number)
}

// memoryApplications is a minimal version-checking store for concurrency tests
type memoryApplications struct {
	MockApplicationRepository
	mu      sync.Mutex
	stored  map[uuid.UUID]enrollment.Application
	version map[uuid.UUID]int
}

func newMemoryApplications(apps ...*enrollment.Application) *memoryApplications {
	m := &memoryApplications{stored: map[uuid.UUID]enrollment.Application{}, version: map[uuid.UUID]int{}}
	for _, a := range apps {
		m.stored[a.ID] = *a
		m.version[a.ID] = a.Version
	}
	return m
}

func (m *memoryApplications) FindByID(_ context.Context, id uuid.UUID) (*enrollment.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.stored[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (m *memoryApplications) SaveWithLock(_ context.Context, app *enrollment.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.version[app.ID] != app.Version {
		return enrollment.NewConflictError(app.Version, m.version[app.ID])
	}
	app.IncrementVersion()
	m.version[app.ID] = app.Version
	cp := *app
	cp.ClearEvents()
	m.stored[app.ID] = cp
	return nil
}

func TestEnrollmentService_ConcurrentApprove(t *testing.T) {
	ctx := context.Background()
	app := newTestApplication(enrollment.StatusVerified)
	apps := newMemoryApplications(app)

	ledger := new(MockPaymentLedger)
	ledger.On("PaymentsFor", mock.Anything, app.ID).Return([]enrollment.LedgerPayment{approvedPayment("5000")}, nil)

	students := new(MockStudentDirectory)
	students.On("FindByApplicationID", mock.Anything, app.ID).Return(nil, shared.ErrNotFound)
	students.On("GenerateStudentNumber", mock.Anything).Return("STU-2026-00010", nil)
	students.On("Create", mock.Anything, mock.Anything).Return(nil)

	reqs := new(MockRequirementsProvider)
	docs := new(MockDocumentRepository)
	registry := NewDocumentRegistry(apps, docs, reqs, nil)
	gate := NewPaymentReadinessGate(apps, ledger, testGateConfig(), nil)
	prov := NewAdmissionProvisioner(apps, students, nil)
	svc := NewEnrollmentService(apps, docs, reqs, registry, gate, prov, nil)

	const callers = 2
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reviewer := fmt.Sprintf("reviewer-%d", i)
			_, results[i] = svc.Approve(ctx, app.ID, reviewer, ApproveRequest{ExpectedVersion: 1})
		}(i)
	}
	wg.Wait()

	successes, refused := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, enrollment.ErrConflict), errors.Is(err, enrollment.ErrAlreadyTerminal), errors.Is(err, enrollment.ErrTerminalState):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, refused)
	students.AssertNumberOfCalls(t, "Create", 1)

	stored, err := apps.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "STU-2026-00010", stored.ProvisionedStudentID)
}
