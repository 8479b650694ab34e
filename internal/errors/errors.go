// Package errors defines the domain error taxonomy shared by the ledger,
// the wallet service and the HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a DomainError for propagation and HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindInsufficientFunds
	KindLockUnavailable
	KindGateway
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindLockUnavailable:
		return "lock_unavailable"
	case KindGateway:
		return "gateway"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// DomainError is an error with a stable machine-readable code.
// Two DomainErrors match under errors.Is when their codes are equal.
type DomainError struct {
	Kind      Kind
	Code      string
	Message   string
	Transient bool
	Err       error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Validation builds a validation error for bad input.
func Validation(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *DomainError {
	return &DomainError{Kind: KindInternal, Code: "INTERNAL", Message: message, Err: cause}
}

// Gateway wraps a payment processor failure.
func Gateway(message string, transient bool, cause error) *DomainError {
	code := "GATEWAY_REJECTED"
	if transient {
		code = "GATEWAY_UNAVAILABLE"
	}
	return &DomainError{Kind: KindGateway, Code: code, Message: message, Transient: transient, Err: cause}
}

// KindOf reports the Kind of the first DomainError in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the whole workflow.
func IsRetryable(err error) bool {
	var de *DomainError
	if !stderrors.As(err, &de) {
		return false
	}
	switch de.Kind {
	case KindLockUnavailable:
		return true
	case KindGateway:
		return de.Transient
	}
	return false
}
