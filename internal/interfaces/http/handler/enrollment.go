package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	enrollmentapp "github.com/schoolops/enrollment/internal/application/enrollment"
)

// EnrollmentUseCases is the application workflow exposed over HTTP
type EnrollmentUseCases interface {
	CreateApplication(ctx context.Context, req enrollmentapp.CreateApplicationRequest) (*enrollmentapp.ApplicationStatusResponse, error)
	GetStatus(ctx context.Context, applicationID uuid.UUID) (*enrollmentapp.ApplicationStatusResponse, error)
	GetByConfirmationCode(ctx context.Context, code string) (*enrollmentapp.ApplicationResponse, error)
	ListApplications(ctx context.Context, filter enrollmentapp.ApplicationListFilter) ([]enrollmentapp.ApplicationListItemResponse, int64, error)
	CountByStatus(ctx context.Context) (*enrollmentapp.StatusCountsResponse, error)
	UpdateApplicantProfile(ctx context.Context, applicationID uuid.UUID, req enrollmentapp.UpdateProfileRequest) (*enrollmentapp.ApplicationResponse, error)
	BeginReview(ctx context.Context, applicationID uuid.UUID, reviewerID string, req enrollmentapp.TransitionRequest) (*enrollmentapp.ApplicationResponse, error)
	MarkVerified(ctx context.Context, applicationID uuid.UUID, reviewerID string, req enrollmentapp.MarkVerifiedRequest) (*enrollmentapp.ApplicationResponse, error)
	Approve(ctx context.Context, applicationID uuid.UUID, reviewerID string, req enrollmentapp.ApproveRequest) (*enrollmentapp.ApprovalResponse, error)
	Provision(ctx context.Context, applicationID uuid.UUID, req enrollmentapp.ProvisionRequest) (*enrollmentapp.ApprovalResponse, error)
	Reject(ctx context.Context, applicationID uuid.UUID, reviewerID string, req enrollmentapp.RejectRequest) (*enrollmentapp.ApplicationResponse, error)
	RequestResubmission(ctx context.Context, applicationID, documentID uuid.UUID, reviewerID string, req enrollmentapp.TransitionRequest) (*enrollmentapp.DocumentResponse, error)
}

// PaymentReadinessEvaluator answers whether an application has paid enough to be approved
type PaymentReadinessEvaluator interface {
	Evaluate(ctx context.Context, applicationID uuid.UUID) (*enrollmentapp.PaymentReadinessResponse, error)
}

// EnrollmentHandler handles application lifecycle endpoints
type EnrollmentHandler struct {
	BaseHandler
	service EnrollmentUseCases
	gate    PaymentReadinessEvaluator
}

// NewEnrollmentHandler creates a new EnrollmentHandler
func NewEnrollmentHandler(service EnrollmentUseCases, gate PaymentReadinessEvaluator) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		gate:    gate,
	}
}

// Create godoc
// @ID           createApplication
//
//	@Summary		Submit an enrollment application
//	@Tags			enrollment
//	@Accept			json
//	@Produce		json
//	@Param			request	body		enrollmentapp.CreateApplicationRequest	true	"Application"
//	@Success		201		{object}	APIResponse[enrollmentapp.ApplicationStatusResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/enrollment/applications [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req enrollmentapp.CreateApplicationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	status, err := h.service.CreateApplication(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, status)
}

// GetStatus godoc
// @ID           getApplicationStatus
//
//	@Summary		Application status with documents and payment readiness
//	@Tags			enrollment
//	@Produce		json
//	@Param			id	path		string	true	"Application ID"
//	@Success		200	{object}	APIResponse[enrollmentapp.ApplicationStatusResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Router			/enrollment/applications/{id} [get]
func (h *EnrollmentHandler) GetStatus(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// GetByConfirmationCode godoc
// @ID           getApplicationByCode
//
//	@Summary		Look up an application by its confirmation code
//	@Tags			enrollment
//	@Produce		json
//	@Param			code	path		string	true	"Confirmation code"
//	@Success		200		{object}	APIResponse[enrollmentapp.ApplicationResponse]
//	@Failure		404		{object}	ErrorResponse
//	@Router			/enrollment/applications/by-code/{code} [get]
func (h *EnrollmentHandler) GetByConfirmationCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		h.InvalidParam(c, "code", "Confirmation code is required")
		return
	}

	app, err := h.service.GetByConfirmationCode(c.Request.Context(), code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// List godoc
// @ID           listApplications
//
//	@Summary		Reviewer queue
//	@Tags			enrollment
//	@Produce		json
//	@Param			status		query		string	false	"Status filter"
//	@Param			page		query		int		false	"Page"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	APIResponse[[]enrollmentapp.ApplicationListItemResponse]
//	@Router			/enrollment/applications [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter enrollmentapp.ApplicationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindError(c, err)
		return
	}

	items, total, err := h.service.ListApplications(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	paging := filter.ToFilter()
	h.SuccessWithMeta(c, items, total, paging.Page, paging.PageSize)
}

// CountByStatus godoc
// @ID           countApplicationsByStatus
//
//	@Summary		Number of applications per status
//	@Tags			enrollment
//	@Produce		json
//	@Success		200	{object}	APIResponse[enrollmentapp.StatusCountsResponse]
//	@Router			/enrollment/applications/stats/status-counts [get]
func (h *EnrollmentHandler) CountByStatus(c *gin.Context) {
	counts, err := h.service.CountByStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counts)
}

// UpdateProfile godoc
// @ID           updateApplicantProfile
//
//	@Summary		Replace the applicant profile
//	@Tags			enrollment
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string								true	"Application ID"
//	@Param			request	body		enrollmentapp.UpdateProfileRequest	true	"Profile"
//	@Success		200		{object}	APIResponse[enrollmentapp.ApplicationResponse]
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/enrollment/applications/{id}/profile [put]
func (h *EnrollmentHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	app, err := h.service.UpdateApplicantProfile(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// BeginReview godoc
// @ID           beginReview
//
//	@Summary		Move a pending application under review
//	@Tags			enrollment
//	@Param			id	path		string	true	"Application ID"
//	@Success		200	{object}	APIResponse[enrollmentapp.ApplicationResponse]
//	@Failure		422	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/applications/{id}/begin-review [post]
func (h *EnrollmentHandler) BeginReview(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.TransitionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	app, err := h.service.BeginReview(c.Request.Context(), id, getReviewerID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// MarkVerified godoc
// @ID           markVerified
//
//	@Summary		Mark an application's documents verified
//	@Description	Requires every required document verified unless an override is supplied
//	@Tags			enrollment
//	@Param			id		path		string								true	"Application ID"
//	@Param			request	body		enrollmentapp.MarkVerifiedRequest	false	"Override"
//	@Success		200		{object}	APIResponse[enrollmentapp.ApplicationResponse]
//	@Failure		422		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/applications/{id}/mark-verified [post]
func (h *EnrollmentHandler) MarkVerified(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.MarkVerifiedRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	app, err := h.service.MarkVerified(c.Request.Context(), id, getReviewerID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// Approve godoc
// @ID           approveApplication
//
//	@Summary		Approve an application and provision the student
//	@Tags			enrollment
//	@Param			id				path		string						true	"Application ID"
//	@Param			Idempotency-Key	header		string						false	"Idempotency key"
//	@Param			request			body		enrollmentapp.ApproveRequest	false	"Approval"
//	@Success		200				{object}	APIResponse[enrollmentapp.ApprovalResponse]
//	@Failure		409				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		503				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/applications/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.ApproveRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	}

	result, err := h.service.Approve(c.Request.Context(), id, getReviewerID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Provision godoc
// @ID           provisionStudent
//
//	@Summary		Retry student provisioning for an approved application
//	@Tags			enrollment
//	@Param			id		path		string							true	"Application ID"
//	@Param			request	body		enrollmentapp.ProvisionRequest	false	"Provisioning options"
//	@Success		200		{object}	APIResponse[enrollmentapp.ApprovalResponse]
//	@Failure		500		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/applications/{id}/provision [post]
func (h *EnrollmentHandler) Provision(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.ProvisionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.service.Provision(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject godoc
// @ID           rejectApplication
//
//	@Summary		Reject an application
//	@Tags			enrollment
//	@Param			id		path		string						true	"Application ID"
//	@Param			request	body		enrollmentapp.RejectRequest	true	"Reason"
//	@Success		200		{object}	APIResponse[enrollmentapp.ApplicationResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/applications/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.RejectRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	app, err := h.service.Reject(c.Request.Context(), id, getReviewerID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, app)
}

// RequestResubmission godoc
// @ID           requestDocumentResubmission
//
//	@Summary		Ask the applicant for a new version of a document
//	@Tags			enrollment
//	@Param			id			path		string	true	"Application ID"
//	@Param			document_id	path		string	true	"Document ID"
//	@Success		200			{object}	APIResponse[enrollmentapp.DocumentResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/applications/{id}/documents/{document_id}/request-resubmission [post]
func (h *EnrollmentHandler) RequestResubmission(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	documentID, ok := h.parseUUIDParam(c, "document_id")
	if !ok {
		return
	}
	var req enrollmentapp.TransitionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	doc, err := h.service.RequestResubmission(c.Request.Context(), id, documentID, getReviewerID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// PaymentReadiness godoc
// @ID           getPaymentReadiness
//
//	@Summary		Evaluate the payment gate for an application
//	@Tags			enrollment
//	@Param			id	path		string	true	"Application ID"
//	@Success		200	{object}	APIResponse[enrollmentapp.PaymentReadinessResponse]
//	@Failure		503	{object}	ErrorResponse
//	@Router			/enrollment/applications/{id}/payment-readiness [get]
func (h *EnrollmentHandler) PaymentReadiness(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	readiness, err := h.gate.Evaluate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, readiness)
}
