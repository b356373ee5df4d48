// Package errors provides domain-specific error types and sentinel errors
// for the chat pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrInvalidInput indicates the caller sent an unusable request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnknownIntent indicates an intent with no mapped info column.
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrModelUnavailable indicates no generation provider is configured.
	ErrModelUnavailable = errors.New("no generation model available")
)

// Kind classifies a failure for translation into a response.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindRateLimited
	KindRepositoryConnection
	KindRepositoryQuery
	KindEncode
	KindGenerate
)

var kindNames = map[Kind]string{
	KindInternal:             "internal",
	KindValidation:           "validation",
	KindRateLimited:          "rate_limited",
	KindRepositoryConnection: "repository_connection",
	KindRepositoryQuery:      "repository_query",
	KindEncode:               "encode",
	KindGenerate:             "generate",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "internal"
}

// HTTPStatus maps a kind to the status code returned to chat callers.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return 400
	case KindRateLimited:
		return 429
	case KindRepositoryConnection:
		return 503
	case KindGenerate:
		return 502
	default:
		return 500
	}
}

// ServerSide reports whether the kind is a failure of this service rather
// than of the caller.
func (k Kind) ServerSide() bool {
	return k.HTTPStatus() >= 500
}

// Error is a failure tagged with its kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a kinded error. Returns nil if err is nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
// Untagged validation and rate limit errors are recognized too;
// anything else is KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var ve *ValidationError
	if errors.As(err, &ve) || errors.Is(err, ErrInvalidInput) {
		return KindValidation
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return KindRateLimited
	}
	return KindInternal
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsRateLimitExceeded checks if err is or wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsUnknownIntent checks if err is or wraps ErrUnknownIntent.
func IsUnknownIntent(err error) bool {
	return errors.Is(err, ErrUnknownIntent)
}
