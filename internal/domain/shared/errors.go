package shared

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a DomainError for propagation purposes
type ErrorKind string

const (
	// KindUnauthenticated means no cart id/token (or access token) is present.
	// Terminal for the current attempt: the caller must establish a new cart.
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	// KindValidation means a required field is missing or malformed at the boundary.
	// No network call has been made.
	KindValidation ErrorKind = "VALIDATION"
	// KindUpstream means the commerce backend failed; status and message are forwarded.
	KindUpstream ErrorKind = "UPSTREAM"
	// KindInvalidState means a checkout flow transition was attempted out of order.
	KindInvalidState ErrorKind = "INVALID_STATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"-"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Status is the HTTP status the error should surface with. Zero lets the
	// transport derive it from Code.
	Status int `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches errors of the same kind, so sentinel comparisons work with
// errors.Is even when messages differ. A target with a code also requires
// the code to match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewUnauthenticatedError creates an Unauthenticated error with the given message
func NewUnauthenticatedError(message string) *DomainError {
	return &DomainError{
		Kind:    KindUnauthenticated,
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewMissingFieldError creates a Validation error for a missing required field.
// The message is "Missing <field>".
func NewMissingFieldError(field string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    "VALIDATION_REQUIRED",
		Message: "Missing " + field,
		Status:  http.StatusBadRequest,
	}
}

// NewValidationError creates a Validation error with a free-form message
func NewValidationError(message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewUpstreamError creates an Upstream error carrying the backend's status and message
func NewUpstreamError(status int, message string) *DomainError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &DomainError{
		Kind:    KindUpstream,
		Code:    "UPSTREAM",
		Message: message,
		Status:  status,
	}
}

// NewInvalidStateError creates an InvalidState error
func NewInvalidStateError(message string) *DomainError {
	return &DomainError{
		Kind:    KindInvalidState,
		Code:    "INVALID_STATE",
		Message: message,
		Status:  http.StatusConflict,
	}
}

// Common domain errors
var (
	ErrUnauthenticated = NewUnauthenticatedError("No cart session")
	ErrUpstream        = NewUpstreamError(http.StatusBadGateway, "")
	ErrValidation      = &DomainError{Kind: KindValidation, Message: "Validation failed"}
	ErrInvalidState    = NewInvalidStateError("Operation not allowed in current state")
)

// KindOf returns the ErrorKind of err, or "" when err is not a DomainError
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsUnauthenticated reports whether err is an Unauthenticated DomainError
func IsUnauthenticated(err error) bool {
	return KindOf(err) == KindUnauthenticated
}

// IsValidation reports whether err is a Validation DomainError
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsUpstream reports whether err is an Upstream DomainError
func IsUpstream(err error) bool {
	return KindOf(err) == KindUpstream
}
