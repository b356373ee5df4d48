package errors

import (
	"errors"
	"fmt"
)

// Wrapper tags errors from one module operation with a fixed kind context.
type Wrapper struct {
	module    string
	operation string
}

// NewWrapper creates a new error wrapper with operation and module context.
func NewWrapper(module, operation string) *Wrapper {
	return &Wrapper{
		module:    module,
		operation: operation,
	}
}

// Op returns "module.operation".
func (w *Wrapper) Op() string {
	return w.module + "." + w.operation
}

// Wrap tags err with kind. Returns nil if err is nil.
func (w *Wrapper) Wrap(kind Kind, err error) error {
	return E(kind, w.Op(), err)
}

// Wrapf tags a formatted error with kind. The format may use %w.
func (w *Wrapper) Wrapf(kind Kind, format string, args ...any) error {
	return E(kind, w.Op(), fmt.Errorf(format, args...))
}

var userMessages = map[Kind]string{
	KindInternal:             "internal error",
	KindRateLimited:          "too many requests, please slow down",
	KindRepositoryConnection: "college information is temporarily unavailable",
	KindRepositoryQuery:      "college information lookup failed",
	KindEncode:               "could not process the message",
	KindGenerate:             "could not generate a reply",
}

// UserMessage returns the caller-facing message for err.
// Validation messages are passed through; everything else is a fixed
// text per kind so internals never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	if kind == KindValidation {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return ve.Message
		}
		return "invalid request"
	}
	return userMessages[kind]
}
