package shared

import "errors"

// ErrorKind classifies a DomainError for propagation decisions: the route
// layer maps kinds to HTTP statuses, and the transaction runner uses
// KindTransientStore to decide what is retryable.
type ErrorKind string

const (
	// KindValidation is malformed input; the caller's fault, not retryable.
	KindValidation ErrorKind = "validation"
	// KindEligibility is a business-rule rejection (window expired,
	// over-return, missing order/product).
	KindEligibility ErrorKind = "eligibility"
	// KindInvalidState means the operation is not allowed from the
	// aggregate's current status.
	KindInvalidState ErrorKind = "invalid_state"
	// KindInsufficientStock means a purchase return exceeds on-hand quantity.
	KindInsufficientStock ErrorKind = "insufficient_stock"
	// KindNotFound means the referenced resource does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindTransientStore is a serialization failure or deadlock; retried
	// internally and only surfaced once the retry budget is exhausted.
	KindTransientStore ErrorKind = "transient_store"
	// KindPersistence is any other storage failure, fatal to the call.
	KindPersistence ErrorKind = "persistence"
)

// DomainError is the error type crossing the domain boundary.
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error
func (e *DomainError) WithCause(err error) *DomainError {
	clone := *e
	clone.cause = err
	return &clone
}

// NewDomainError creates a new domain error of the given kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewEligibilityError creates an eligibility error
func NewEligibilityError(code, message string) *DomainError {
	return NewDomainError(KindEligibility, code, message)
}

// NewInvalidStateError creates an invalid-state error
func NewInvalidStateError(code, message string) *DomainError {
	return NewDomainError(KindInvalidState, code, message)
}

// NewInsufficientStockError creates an insufficient-stock error
func NewInsufficientStockError(code, message string) *DomainError {
	return NewDomainError(KindInsufficientStock, code, message)
}

// NewTransientStoreError creates a transient store error wrapping its cause
func NewTransientStoreError(message string, cause error) *DomainError {
	return NewDomainError(KindTransientStore, "TRANSIENT_STORE", message).WithCause(cause)
}

// NewPersistenceError creates a persistence error wrapping its cause
func NewPersistenceError(message string, cause error) *DomainError {
	return NewDomainError(KindPersistence, "PERSISTENCE", message).WithCause(cause)
}

// IsKind reports whether err is (or wraps) a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or KindPersistence for unclassified errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrInvalidState = NewDomainError(KindInvalidState, "INVALID_STATE", "Operation not allowed in current state")
)
