package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type registryFixture struct {
	apps  *MockApplicationRepository
	docs  *MockDocumentRepository
	reqs  *MockRequirementsProvider
	files *MockFileReferenceChecker
	pub   *MockEventPublisher
	reg   *DocumentRegistry
}

func newRegistryFixture(withFiles bool) *registryFixture {
	f := &registryFixture{
		apps:  new(MockApplicationRepository),
		docs:  new(MockDocumentRepository),
		reqs:  new(MockRequirementsProvider),
		files: new(MockFileReferenceChecker),
		pub:   new(MockEventPublisher),
	}
	var opts []DocumentRegistryOption
	if withFiles {
		opts = append(opts, WithFileReferenceChecker(f.files))
	}
	f.reg = NewDocumentRegistry(f.apps, f.docs, f.reqs, nil, opts...)
	f.reg.SetEventPublisher(f.pub)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return f
}

func TestDocumentRegistry_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("verifies and publishes", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusPending)

		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.docs.On("SaveWithLock", ctx, doc).Return(nil)

		resp, err := f.reg.Verify(ctx, doc.ID, "reviewer-9")
		require.NoError(t, err)
		assert.Equal(t, "VERIFIED", resp.Status)
		assert.Equal(t, "reviewer-9", resp.ReviewerID)
		assert.Equal(t, enrollment.StatusUnderReview, app.Status)
		f.pub.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("missing document", func(t *testing.T) {
		f := newRegistryFixture(false)
		id := uuid.New()
		f.docs.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.reg.Verify(ctx, id, "reviewer-9")
		assert.True(t, errors.Is(err, enrollment.ErrDocumentNotFound))
	})

	t.Run("terminal application", func(t *testing.T) {
		for _, status := range []enrollment.ApplicationStatus{enrollment.StatusApproved, enrollment.StatusRejected} {
			f := newRegistryFixture(false)
			app := newTestApplication(status)
			doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusPending)

			f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
			f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

			_, err := f.reg.Verify(ctx, doc.ID, "reviewer-9")
			assert.True(t, errors.Is(err, enrollment.ErrAlreadyTerminal), "status %s", status)
			assert.Equal(t, enrollment.DocumentStatusPending, doc.Status)
			f.docs.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		}
	})

	t.Run("stale row is a conflict", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusPending)

		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.docs.On("SaveWithLock", ctx, doc).Return(enrollment.ErrConflict)

		_, err := f.reg.Verify(ctx, doc.ID, "reviewer-9")
		assert.True(t, errors.Is(err, enrollment.ErrConflict))
		f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestDocumentRegistry_Reject(t *testing.T) {
	ctx := context.Background()
	f := newRegistryFixture(false)
	app := newTestApplication(enrollment.StatusUnderReview)
	doc := newTestDocument(app.ID, "REPORT_CARD", enrollment.DocumentStatusPending)

	f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
	f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
	f.docs.On("SaveWithLock", ctx, doc).Return(nil)

	_, err := f.reg.Reject(ctx, doc.ID, "reviewer-9", "")
	assert.True(t, errors.Is(err, enrollment.ErrValidation))

	resp, err := f.reg.Reject(ctx, doc.ID, "reviewer-9", "unreadable")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", resp.Status)
	assert.Equal(t, "unreadable", resp.RejectionReason)
	assert.True(t, resp.IsCurrentVersion)
}

func TestDocumentRegistry_Resubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected document gets a new current version", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusRejected)
		doc.ResubmissionCount = 2

		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.docs.On("Supersede", ctx, doc, mock.AnythingOfType("*enrollment.Document")).Return(nil)

		resp, err := f.reg.Resubmit(ctx, doc.ID, "uploads/birth-v3.pdf")
		require.NoError(t, err)
		assert.Equal(t, "PENDING", resp.Status)
		assert.Equal(t, 3, resp.ResubmissionCount)
		assert.True(t, resp.IsCurrentVersion)
		require.NotNil(t, resp.SupersedesID)
		assert.Equal(t, doc.ID, *resp.SupersedesID)
		assert.Equal(t, "uploads/birth-v3.pdf", resp.FileRef)

		assert.False(t, doc.IsCurrentVersion)
		assert.Equal(t, enrollment.DocumentStatusRejected, doc.Status)
		assert.Equal(t, "blurry", doc.RejectionReason)
	})

	t.Run("only rejected documents", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusPending)

		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

		_, err := f.reg.Resubmit(ctx, doc.ID, "uploads/x.pdf")
		assert.True(t, errors.Is(err, enrollment.ErrPreconditionFailed))
		assert.True(t, doc.IsCurrentVersion)
	})

	t.Run("requested resubmission receives the upload in place", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		prev := newTestDocument(app.ID, "REPORT_CARD", enrollment.DocumentStatusPending)
		requested, err := prev.Supersede("")
		require.NoError(t, err)

		f.docs.On("FindByID", ctx, requested.ID).Return(requested, nil)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.docs.On("SaveWithLock", ctx, requested).Return(nil)

		resp, err := f.reg.Resubmit(ctx, requested.ID, "s3://enrollment-uploads/card-v2.pdf")
		require.NoError(t, err)
		assert.Equal(t, requested.ID, resp.ID)
		assert.Equal(t, "PENDING", resp.Status)
		assert.Equal(t, "s3://enrollment-uploads/card-v2.pdf", resp.FileRef)
		assert.Equal(t, 1, resp.ResubmissionCount)
		f.docs.AssertNotCalled(t, "Supersede", mock.Anything, mock.Anything, mock.Anything)
		f.pub.AssertCalled(t, "Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == enrollment.EventTypeDocumentUploaded
		}))

		_, err = f.reg.Resubmit(ctx, requested.ID, "s3://enrollment-uploads/card-v3.pdf")
		assert.True(t, errors.Is(err, enrollment.ErrPreconditionFailed))
	})

	t.Run("file reference required", func(t *testing.T) {
		f := newRegistryFixture(false)
		_, err := f.reg.Resubmit(ctx, uuid.New(), "  ")
		assert.True(t, errors.Is(err, enrollment.ErrValidation))
	})

	t.Run("missing object in storage", func(t *testing.T) {
		f := newRegistryFixture(true)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusRejected)

		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
		f.files.On("Exists", ctx, "uploads/missing.pdf").Return(false, nil)

		_, err := f.reg.Resubmit(ctx, doc.ID, "uploads/missing.pdf")
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, enrollment.CodeValidation, de.Code)
		assert.Equal(t, "file_ref", de.Field)
		f.docs.AssertNotCalled(t, "Supersede", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDocumentRegistry_RequestResubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("document of another application", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(uuid.New(), "BIRTH_CERTIFICATE", enrollment.DocumentStatusPending)
		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)

		_, err := f.reg.RequestResubmission(ctx, app, doc.ID, "reviewer-1")
		assert.True(t, errors.Is(err, enrollment.ErrDocumentNotFound))
	})

	t.Run("verified document cannot be re-requested", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusVerified)
		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)

		_, err := f.reg.RequestResubmission(ctx, app, doc.ID, "reviewer-1")
		assert.True(t, errors.Is(err, enrollment.ErrPreconditionFailed))
	})

	t.Run("pending document is superseded by an empty version", func(t *testing.T) {
		f := newRegistryFixture(false)
		app := newTestApplication(enrollment.StatusUnderReview)
		doc := newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusPending)
		f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
		f.docs.On("Supersede", ctx, doc, mock.Anything).Return(nil)

		next, err := f.reg.RequestResubmission(ctx, app, doc.ID, "reviewer-1")
		require.NoError(t, err)
		assert.Equal(t, 1, next.ResubmissionCount)
		assert.Empty(t, next.FileRef)
		assert.Equal(t, enrollment.DocumentStatusPending, next.Status)
	})
}

func TestDocumentRegistry_AllVerified(t *testing.T) {
	ctx := context.Background()
	f := newRegistryFixture(false)
	app := newTestApplication(enrollment.StatusUnderReview)

	docs := []enrollment.Document{
		*newTestDocument(app.ID, "BIRTH_CERTIFICATE", enrollment.DocumentStatusVerified),
		*newTestDocument(app.ID, "REPORT_CARD", enrollment.DocumentStatusVerified),
		*newTestDocument(app.ID, "GOOD_MORAL", enrollment.DocumentStatusPending),
	}
	f.apps.On("FindByID", ctx, app.ID).Return(app, nil)
	f.reqs.On("RequiredDocumentTypes", ctx, "GRADE_4", enrollment.CategoryNew).Return(requiredTypes, nil)
	f.docs.On("FindCurrentByApplication", ctx, app.ID).Return(docs, nil).Once()

	ok, err := f.reg.AllVerified(ctx, app.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	docs[2] = *newTestDocument(app.ID, "GOOD_MORAL", enrollment.DocumentStatusVerified)
	f.docs.On("FindCurrentByApplication", ctx, app.ID).Return(docs, nil).Once()

	ok, err = f.reg.AllVerified(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDocumentRegistry_SharesApplicationLock(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	require.True(t, f.registry.locker == f.svc.locker)

	app := newTestApplication(enrollment.StatusUnderReview)
	doc := newTestDocument(app.ID, "REPORT_CARD", enrollment.DocumentStatusPending)
	f.docs.On("FindByID", ctx, doc.ID).Return(doc, nil)
	f.apps.On("FindByID", ctx, app.ID).Return(app, nil)

	unlock, err := f.svc.locker.Lock(ctx, app.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.registry.Reject(ctx, doc.ID, "reviewer-9", "unreadable")
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("document changed while a transition held the application: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// The transition holding the lock closes the application
	require.NoError(t, app.Reject("reviewer-1", "Withdrawn by guardian"))
	unlock()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, enrollment.ErrAlreadyTerminal))
	case <-time.After(time.Second):
		t.Fatal("document rejection never acquired the lock")
	}
	assert.Equal(t, enrollment.DocumentStatusPending, doc.Status)
	f.docs.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}
