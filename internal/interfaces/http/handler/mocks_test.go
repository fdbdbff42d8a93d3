package handler

import (
	"context"

	"github.com/google/uuid"
	enrollmentapp "github.com/schoolops/enrollment/internal/application/enrollment"
	"github.com/stretchr/testify/mock"
)

type mockEnrollment struct {
	mock.Mock
}

func (m *mockEnrollment) CreateApplication(ctx context.Context, req enrollmentapp.CreateApplicationRequest) (*enrollmentapp.ApplicationStatusResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.ApplicationStatusResponse), args.Error(1)
}

func (m *mockEnrollment) GetStatus(ctx context.Context, id uuid.UUID) (*enrollmentapp.ApplicationStatusResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.ApplicationStatusResponse), args.Error(1)
}

func (m *mockEnrollment) GetByConfirmationCode(ctx context.Context, code string) (*enrollmentapp.ApplicationResponse, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.ApplicationResponse), args.Error(1)
}

func (m *mockEnrollment) ListApplications(ctx context.Context, filter enrollmentapp.ApplicationListFilter) ([]enrollmentapp.ApplicationListItemResponse, int64, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]enrollmentapp.ApplicationListItemResponse)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockEnrollment) CountByStatus(ctx context.Context) (*enrollmentapp.StatusCountsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.StatusCountsResponse), args.Error(1)
}

func (m *mockEnrollment) UpdateApplicantProfile(ctx context.Context, id uuid.UUID, req enrollmentapp.UpdateProfileRequest) (*enrollmentapp.ApplicationResponse, error) {
	args := m.Called(ctx, id, req)
	return appResult(args)
}

func (m *mockEnrollment) BeginReview(ctx context.Context, id uuid.UUID, reviewerID string, req enrollmentapp.TransitionRequest) (*enrollmentapp.ApplicationResponse, error) {
	args := m.Called(ctx, id, reviewerID, req)
	return appResult(args)
}

func (m *mockEnrollment) MarkVerified(ctx context.Context, id uuid.UUID, reviewerID string, req enrollmentapp.MarkVerifiedRequest) (*enrollmentapp.ApplicationResponse, error) {
	args := m.Called(ctx, id, reviewerID, req)
	return appResult(args)
}

func (m *mockEnrollment) Approve(ctx context.Context, id uuid.UUID, reviewerID string, req enrollmentapp.ApproveRequest) (*enrollmentapp.ApprovalResponse, error) {
	args := m.Called(ctx, id, reviewerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.ApprovalResponse), args.Error(1)
}

func (m *mockEnrollment) Provision(ctx context.Context, id uuid.UUID, req enrollmentapp.ProvisionRequest) (*enrollmentapp.ApprovalResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.ApprovalResponse), args.Error(1)
}

func (m *mockEnrollment) Reject(ctx context.Context, id uuid.UUID, reviewerID string, req enrollmentapp.RejectRequest) (*enrollmentapp.ApplicationResponse, error) {
	args := m.Called(ctx, id, reviewerID, req)
	return appResult(args)
}

func (m *mockEnrollment) RequestResubmission(ctx context.Context, appID, docID uuid.UUID, reviewerID string, req enrollmentapp.TransitionRequest) (*enrollmentapp.DocumentResponse, error) {
	args := m.Called(ctx, appID, docID, reviewerID, req)
	return docResult(args)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) Evaluate(ctx context.Context, id uuid.UUID) (*enrollmentapp.PaymentReadinessResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.PaymentReadinessResponse), args.Error(1)
}

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) Verify(ctx context.Context, id uuid.UUID, reviewerID string) (*enrollmentapp.DocumentResponse, error) {
	return docResult(m.Called(ctx, id, reviewerID))
}

func (m *mockDocuments) Reject(ctx context.Context, id uuid.UUID, reviewerID, reason string) (*enrollmentapp.DocumentResponse, error) {
	return docResult(m.Called(ctx, id, reviewerID, reason))
}

func (m *mockDocuments) Resubmit(ctx context.Context, id uuid.UUID, fileRef string) (*enrollmentapp.DocumentResponse, error) {
	return docResult(m.Called(ctx, id, fileRef))
}

func (m *mockDocuments) History(ctx context.Context, id uuid.UUID) ([]enrollmentapp.DocumentResponse, error) {
	args := m.Called(ctx, id)
	docs, _ := args.Get(0).([]enrollmentapp.DocumentResponse)
	return docs, args.Error(1)
}

func appResult(args mock.Arguments) (*enrollmentapp.ApplicationResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.ApplicationResponse), args.Error(1)
}

func docResult(args mock.Arguments) (*enrollmentapp.DocumentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*enrollmentapp.DocumentResponse), args.Error(1)
}
