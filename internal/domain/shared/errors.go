package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidTransition   = NewDomainError("INVALID_TRANSITION", "Operation not allowed in current state")
	ErrDuplicateBatch      = NewDomainError("DUPLICATE_BATCH", "A settlement batch already exists for this owner and period")
	ErrBatchBusy           = NewDomainError("BATCH_BUSY", "A calculation is already running for this batch")
	ErrNotConfigured       = NewDomainError("NOT_CONFIGURED", "Partner webhook is not configured for this event")
)
