// Package errs defines the error taxonomy shared across memoryd's
// components: a small set of Kinds that callers can switch on without
// parsing messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error without requiring the caller to inspect its
// message. See spec §7.
type Kind int

const (
	// Internal indicates an invariant was broken inside memoryd itself.
	Internal Kind = iota
	// Validation indicates malformed or missing caller input.
	Validation
	// SizeLimit indicates a payload exceeded a configured cap.
	SizeLimit
	// NotInitialized indicates an operation was attempted before initialize.
	NotInitialized
	// DimensionMismatch indicates a vector's dimension disagreed with the index's fixed dimension.
	DimensionMismatch
	// StoreUnavailable indicates a backing store could not be reached.
	StoreUnavailable
	// Conflict indicates a unique-key violation or similar state conflict.
	Conflict
	// Timeout indicates an operation exceeded its allotted time.
	Timeout
	// RateLimited indicates the caller was denied by admission control.
	RateLimited
	// Closed indicates an operation was attempted after Close.
	Closed
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case SizeLimit:
		return "size_limit"
	case NotInitialized:
		return "not_initialized"
	case DimensionMismatch:
		return "dimension_mismatch"
	case StoreUnavailable:
		return "store_unavailable"
	case Conflict:
		return "conflict"
	case Timeout:
		return "timeout"
	case RateLimited:
		return "rate_limited"
	case Closed:
		return "closed"
	default:
		return "internal"
	}
}

// Error is memoryd's structured error type. It wraps an optional cause and
// carries a Kind plus a machine-readable Code (e.g. "EMPTY_PROMPT").
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, errs.New(k, ...)) style Kind comparisons, and
// also lets callers match sentinel-like "empty" *Error values built with
// just a Kind via errors.Is(err, KindSentinel(k)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return t.Kind == e.Kind && t.Code == e.Code
	}
	return t.Kind == e.Kind
}

// New constructs an *Error with the given Kind, machine-readable code, and
// human message.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap constructs an *Error that wraps cause.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// KindSentinel returns a zero-value *Error carrying only a Kind, suitable
// for errors.Is(err, errs.KindSentinel(errs.Validation)) checks that should
// match any Validation error regardless of Code.
func KindSentinel(kind Kind) *Error { return &Error{Kind: kind} }

// Of reports the Kind of err if it is (or wraps) an *Error, and Internal
// otherwise.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// CodeOf reports the machine-readable Code of err if it is (or wraps) an
// *Error, and "" otherwise.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
