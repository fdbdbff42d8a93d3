package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	enrollmentapp "github.com/schoolops/enrollment/internal/application/enrollment"
)

// DocumentUseCases is the document registry exposed over HTTP
type DocumentUseCases interface {
	Verify(ctx context.Context, documentID uuid.UUID, reviewerID string) (*enrollmentapp.DocumentResponse, error)
	Reject(ctx context.Context, documentID uuid.UUID, reviewerID, reason string) (*enrollmentapp.DocumentResponse, error)
	Resubmit(ctx context.Context, documentID uuid.UUID, fileRef string) (*enrollmentapp.DocumentResponse, error)
	History(ctx context.Context, documentID uuid.UUID) ([]enrollmentapp.DocumentResponse, error)
}

// DocumentHandler handles document review endpoints
type DocumentHandler struct {
	BaseHandler
	registry DocumentUseCases
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(registry DocumentUseCases) *DocumentHandler {
	return &DocumentHandler{registry: registry}
}

// Verify godoc
// @ID           verifyDocument
//
//	@Summary		Verify a pending document
//	@Tags			documents
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	APIResponse[enrollmentapp.DocumentResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/documents/{id}/verify [post]
func (h *DocumentHandler) Verify(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.registry.Verify(c.Request.Context(), id, getReviewerID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Reject godoc
// @ID           rejectDocument
//
//	@Summary		Reject a document
//	@Tags			documents
//	@Param			id		path		string								true	"Document ID"
//	@Param			request	body		enrollmentapp.RejectDocumentRequest	true	"Reason"
//	@Success		200		{object}	APIResponse[enrollmentapp.DocumentResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/enrollment/documents/{id}/reject [post]
func (h *DocumentHandler) Reject(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.RejectDocumentRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	doc, err := h.registry.Reject(c.Request.Context(), id, getReviewerID(c), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Resubmit godoc
// @ID           resubmitDocument
//
//	@Summary		Upload a file for a rejected document or a requested resubmission
//	@Tags			documents
//	@Param			id		path		string									true	"Document ID"
//	@Param			request	body		enrollmentapp.ResubmitDocumentRequest	true	"File reference"
//	@Success		200		{object}	APIResponse[enrollmentapp.DocumentResponse]
//	@Success		201		{object}	APIResponse[enrollmentapp.DocumentResponse]
//	@Failure		422		{object}	ErrorResponse
//	@Router			/enrollment/documents/{id}/resubmit [post]
func (h *DocumentHandler) Resubmit(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req enrollmentapp.ResubmitDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	doc, err := h.registry.Resubmit(c.Request.Context(), id, req.FileRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	// A requested resubmission is filled in place; a rejected document gets a new version.
	if doc.ID == id {
		h.Success(c, doc)
		return
	}
	h.Created(c, doc)
}

// History godoc
// @ID           documentHistory
//
//	@Summary		Every version of a document, oldest first
//	@Tags			documents
//	@Param			id	path		string	true	"Document ID"
//	@Success		200	{object}	APIResponse[[]enrollmentapp.DocumentResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Router			/enrollment/documents/{id}/history [get]
func (h *DocumentHandler) History(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.registry.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}
