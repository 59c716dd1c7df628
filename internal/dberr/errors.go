// Package dberr defines the error categories surfaced by ordering and
// persistence code.
//
// Three categories exist:
//   - PROGRAMMER_ERROR: the caller misused an API (a monitor read before
//     capture, a bulk mutation without save). Never caused by data.
//   - CONFLICT: the store rejected a write as a concurrent or constraint
//     conflict. The transaction was rolled back; callers may retry.
//   - STORE_ERROR: any other failure of the underlying store, annotated
//     with the operation phase that failed.
package dberr

import (
	"errors"
	"fmt"
)

// Code categorizes an Error.
type Code string

const (
	// CodeProgrammer indicates API misuse by the caller.
	CodeProgrammer Code = "PROGRAMMER_ERROR"

	// CodeConflict indicates the store rejected a write as conflicting.
	CodeConflict Code = "CONFLICT"

	// CodeStore indicates any other store failure.
	CodeStore Code = "STORE_ERROR"
)

// Error is the structured error returned by ordset packages.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op is the public operation that failed ("move", "remove", ...).
	Op string

	// Phase is the step inside Op that failed ("shift-up", "commit", ...).
	Phase string

	// Entity identifies the affected row when known.
	Entity string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}

	where := e.Op
	if e.Phase != "" {
		where += "/" + e.Phase
	}
	switch {
	case where != "" && e.Entity != "":
		return fmt.Sprintf("%s: %s (op=%s, entity=%s)", e.Code, msg, where, e.Entity)
	case where != "":
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, msg, where)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Unwrap returns the underlying cause so errors.Is sees through Error,
// in particular for context.Canceled.
func (e *Error) Unwrap() error {
	return e.Err
}

// Programmer creates a PROGRAMMER_ERROR.
func Programmer(op, format string, args ...any) *Error {
	return &Error{
		Code:    CodeProgrammer,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap annotates a store failure with the operation and phase.
// conflict selects CONFLICT over STORE_ERROR. A nil err returns nil, and an
// err that is already an *Error keeps its code and gains missing context.
func Wrap(op, phase string, err error, conflict bool) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op == "" {
			existing.Op = op
		}
		if existing.Phase == "" {
			existing.Phase = phase
		}
		return err
	}
	code := CodeStore
	if conflict {
		code = CodeConflict
	}
	return &Error{Code: code, Op: op, Phase: phase, Err: err}
}

// WithEntity sets Entity on err if it is an *Error and returns err.
func WithEntity(err error, entity string) error {
	var e *Error
	if errors.As(err, &e) && e.Entity == "" {
		e.Entity = entity
	}
	return err
}

// IsProgrammer returns true if the error is a PROGRAMMER_ERROR.
// Uses errors.As to handle wrapped errors.
func IsProgrammer(err error) bool {
	return hasCode(err, CodeProgrammer)
}

// IsConflict returns true if the error is a CONFLICT.
func IsConflict(err error) bool {
	return hasCode(err, CodeConflict)
}

// IsStore returns true if the error is a STORE_ERROR.
func IsStore(err error) bool {
	return hasCode(err, CodeStore)
}

// PhaseOf returns the phase recorded on err, or "" if none.
func PhaseOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Phase
	}
	return ""
}

func hasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
