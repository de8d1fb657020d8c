// Package domainerrors provides coded errors for domain and service layers.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate those into coded domain errors so transport layers can
// map codes to status codes without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for propagation policy decisions.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "invariant_violation"

	// CodeClassificationFailure marks pattern-engine failures. Callers must
	// treat the affected payload as Restricted, never as Public.
	CodeClassificationFailure Code = "classification_failure"

	// CodeEncryptionFailure marks key-provider or cipher failures. Fatal to
	// the write that needed encryption; no partial write may survive it.
	CodeEncryptionFailure Code = "encryption_failure"

	// CodeIntegrityViolation marks auth-tag mismatches and hash-chain breaks.
	// Anything carrying this code must also reach the alert engine.
	CodeIntegrityViolation Code = "integrity_violation"

	// CodeActorWriteFailure marks failures of the authoritative conversation
	// write. Propagated to the caller as-is.
	CodeActorWriteFailure Code = "actor_write_failure"

	// CodeProjectionFailure marks index-projection failures. Never surfaced
	// to the original caller; logged and retried on a bounded schedule.
	CodeProjectionFailure Code = "projection_failure"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	ErrCode Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error without a cause.
func New(code Code, message string) error {
	return &Error{ErrCode: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. Returns nil if
// err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{ErrCode: code, Message: message, cause: err}
}

// CodeOf extracts the code from err, walking the wrap chain. Uncoded errors
// report CodeInternal.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.ErrCode
	}
	return CodeInternal
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.ErrCode == code
	}
	return false
}
