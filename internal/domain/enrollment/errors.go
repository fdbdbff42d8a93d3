package enrollment

import (
	"fmt"
	"strings"

	"github.com/schoolops/enrollment/internal/domain/shared"
)

// Error codes of the enrollment workflow
const (
	CodeNotFound           = "NOT_FOUND"
	CodeDocumentNotFound   = "DOCUMENT_NOT_FOUND"
	CodeTerminalState      = "TERMINAL_STATE"
	CodeAlreadyTerminal    = "ALREADY_TERMINAL"
	CodePreconditionFailed = "PRECONDITION_FAILED"
	CodeGateUnavailable    = "GATE_UNAVAILABLE"
	CodeConflict           = "CONFLICT"
	CodeProvisioningFailed = "PROVISIONING_FAILED"
	CodeValidation         = "VALIDATION_ERROR"
)

// Sentinels for errors.Is matching. Matching is by code, so a sentinel
// matches every error of its kind whatever the message or field.
var (
	ErrNotFound           = shared.NewDomainError(CodeNotFound, "Application not found")
	ErrDocumentNotFound   = shared.NewDomainError(CodeDocumentNotFound, "Document not found")
	ErrTerminalState      = shared.NewDomainError(CodeTerminalState, "Application is in a terminal state")
	ErrAlreadyTerminal    = shared.NewDomainError(CodeAlreadyTerminal, "Application has already reached a terminal state")
	ErrPreconditionFailed = shared.NewDomainError(CodePreconditionFailed, "Transition precondition not met")
	ErrGateUnavailable    = shared.NewDomainError(CodeGateUnavailable, "Payment readiness could not be determined")
	ErrConflict           = shared.NewDomainError(CodeConflict, "Application was modified concurrently")
	ErrProvisioning       = shared.NewDomainError(CodeProvisioningFailed, "Student provisioning failed")
	ErrValidation         = shared.NewDomainError(CodeValidation, "Validation failed")
)

// NewValidationError reports invalid input on a named field
func NewValidationError(field, message string) *shared.DomainError {
	return shared.NewFieldError(CodeValidation, field, message)
}

// NewPreconditionFailedError names the unmet condition in field and message
func NewPreconditionFailedError(field, message string) *shared.DomainError {
	return shared.NewFieldError(CodePreconditionFailed, field, message)
}

// NewTerminalStateError reports a mutation attempted on an approved or rejected application
func NewTerminalStateError(status ApplicationStatus, operation string) *shared.DomainError {
	return shared.NewFieldError(CodeTerminalState, "status",
		fmt.Sprintf("Cannot %s: application is %s", operation, status))
}

// NewAlreadyTerminalError reports an operation that lost the race to a terminal transition
func NewAlreadyTerminalError(status ApplicationStatus) *shared.DomainError {
	return shared.NewFieldError(CodeAlreadyTerminal, "status",
		fmt.Sprintf("Application is already %s", status))
}

// NewConflictError reports a stale version
func NewConflictError(expected, actual int) *shared.DomainError {
	return shared.NewFieldError(CodeConflict, "version",
		fmt.Sprintf("Version mismatch: expected %d, current %d", expected, actual))
}

// NewGateUnavailableError wraps the ledger failure that prevented evaluation
func NewGateUnavailableError(cause error) *shared.DomainError {
	return ErrGateUnavailable.WithCause(cause)
}

// NewProvisioningError wraps the failure that left an approved application without a student
func NewProvisioningError(cause error) *shared.DomainError {
	return ErrProvisioning.WithCause(cause)
}

// NewOutstandingDocumentsError names the required document types not yet verified
func NewOutstandingDocumentsError(outstanding []string) *shared.DomainError {
	return NewPreconditionFailedError("documents",
		"Required documents not verified: "+strings.Join(outstanding, ", "))
}
