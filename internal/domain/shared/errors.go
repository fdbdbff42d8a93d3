package shared

// DomainError is the structured error returned by every domain and application operation.
// Code identifies the error kind, Field names the offending input when there is one.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrNotFound) matches any not-found error regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithField returns a copy of the error naming the offending field
func (e *DomainError) WithField(field string) *DomainError {
	cp := *e
	cp.Field = field
	return &cp
}

// WithCause returns a copy of the error wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.cause = cause
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewFieldError creates a domain error bound to an input field
func NewFieldError(code, field, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Validation failed")
	ErrConcurrencyConflict = NewDomainError("CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
