package dto

import (
	"net/http"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
)

// Transport level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired    = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "ERR_TOKEN_INVALID"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ERR_ROUTE_NOT_FOUND"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// Codes of the shared domain errors that can surface from infrastructure
const (
	codeAlreadyExists = "ALREADY_EXISTS"
	codeInvalidInput  = "INVALID_INPUT"
	codeInvalidState  = "INVALID_STATE"
	codeUnauthorized  = "UNAUTHORIZED"
)

// ErrorCodeHTTPStatus maps every error code a client can receive to its HTTP status
var ErrorCodeHTTPStatus = map[string]int{
	enrollment.CodeNotFound:           http.StatusNotFound,
	enrollment.CodeDocumentNotFound:   http.StatusNotFound,
	enrollment.CodeTerminalState:      http.StatusUnprocessableEntity,
	enrollment.CodeAlreadyTerminal:    http.StatusConflict,
	enrollment.CodePreconditionFailed: http.StatusUnprocessableEntity,
	enrollment.CodeGateUnavailable:    http.StatusServiceUnavailable,
	enrollment.CodeConflict:           http.StatusConflict,
	enrollment.CodeProvisioningFailed: http.StatusInternalServerError,
	enrollment.CodeValidation:         http.StatusBadRequest,

	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:   http.StatusNotFound,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status of code, 500 when the code is unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// legacyCodes folds the generic shared error codes into the enrollment taxonomy
var legacyCodes = map[string]string{
	codeAlreadyExists: enrollment.CodeConflict,
	codeInvalidInput:  enrollment.CodeValidation,
	codeInvalidState:  enrollment.CodePreconditionFailed,
	codeUnauthorized:  ErrCodeUnauthorized,
}

// NormalizeErrorCode returns the code sent to clients for a domain error code.
// Codes outside the taxonomy become ERR_INTERNAL.
func NormalizeErrorCode(code string) string {
	if mapped, ok := legacyCodes[code]; ok {
		return mapped
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternal
}
