package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/interfaces/http/dto"
	"github.com/schoolops/enrollment/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader carries the approval idempotency key when the body omits it
const IdempotencyKeyHeader = "Idempotency-Key"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getReviewerID returns the reviewer identity resolved by the reviewer middleware
func getReviewerID(c *gin.Context) string {
	return middleware.GetReviewerID(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message, field string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, field, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message, "")
}

// InvalidParam sends a VALIDATION_ERROR naming a path or query parameter
func (h *BaseHandler) InvalidParam(c *gin.Context, field, message string) {
	h.Error(c, enrollment.CodeValidation, message, field)
}

// HandleBindError reports a request body or query that failed to bind
func (h *BaseHandler) HandleBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.Error(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", "")
		return
	}
	if details, ok := dto.ValidationDetails(err); ok {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			enrollment.CodeValidation,
			"Request validation failed",
			getRequestID(c),
			details,
		))
		return
	}
	h.Error(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON", "")
}

// HandleError converts service errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		message := domainErr.Message
		if code == dto.ErrCodeInternal {
			message = "An unexpected error occurred"
		}
		h.Error(c, code, message, domainErr.Field)
		return
	}

	_ = c.Error(err)
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred", "")
}

// bindOptionalJSON binds a JSON body when one is present. Transitions accept an empty body.
func (h *BaseHandler) bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		if err := validateStruct(obj); err != nil {
			h.HandleBindError(c, err)
			return false
		}
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		if errors.Is(err, io.EOF) {
			if verr := validateStruct(obj); verr != nil {
				h.HandleBindError(c, verr)
				return false
			}
			return true
		}
		h.HandleBindError(c, err)
		return false
	}
	return true
}

// bindJSON binds a required JSON body
func (h *BaseHandler) bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.HandleBindError(c, err)
		return false
	}
	return true
}

// parseUUIDParam parses a UUID path parameter, reporting a validation error when malformed
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		h.InvalidParam(c, name, "Invalid "+strings.ReplaceAll(name, "_", " ")+" format")
		return uuid.Nil, false
	}
	return id, true
}

func validateStruct(obj any) error {
	if binding.Validator == nil {
		return nil
	}
	return binding.Validator.ValidateStruct(obj)
}
