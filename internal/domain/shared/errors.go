package shared

import "errors"

// DomainError is a rule violation the caller can act on. Code is stable and
// maps to an HTTP status at the edge; Message is for humans and may carry
// detail such as the period or product involved.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string { return e.Message }

// Is matches on Code alone, so a sentinel matches every detailed copy made
// from it with WithMessage.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	return ok && other.Code == e.Code
}

// WithMessage copies the error under the same code with a specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return NewDomainError(e.Code, message)
}

// AsDomainError finds the first DomainError in err's chain, including joined errors
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)
