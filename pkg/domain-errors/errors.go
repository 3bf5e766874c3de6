// Package domainerrors defines the closed error taxonomy the engine exposes
// to callers. Stores return sentinel errors for storage facts; services
// translate those into coded domain errors carrying enough context (guest id,
// visit id) for the caller to render a meaningful message.
package domainerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code names one expected, recoverable-by-the-caller condition. The set is
// closed: handlers map codes to HTTP statuses exhaustively and anything
// outside the set is treated as an internal fault.
type Code string

const (
	CodeGuestNotFound            Code = "GUEST_NOT_FOUND"
	CodeAlreadyCheckedIn         Code = "ALREADY_CHECKED_IN"
	CodeNotCheckedIn             Code = "NOT_CHECKED_IN"
	CodeGuestCurrentlyCheckedIn  Code = "GUEST_CURRENTLY_CHECKED_IN"
	CodeSequenceLimitExceeded    Code = "SEQUENCE_LIMIT_EXCEEDED"
	CodeDisplayIDGenerationFail  Code = "DISPLAY_ID_GENERATION_FAILED"
	CodeInvalidRange             Code = "INVALID_RANGE"
	CodeForbidden                Code = "FORBIDDEN"
	CodeNotFound                 Code = "NOT_FOUND"
	CodeInvalidInput             Code = "VALIDATION_ERROR"

	// CodeInternal marks unexpected faults, including storage connectivity
	// failures. Callers should treat these as retryable infrastructure
	// errors, not domain rejections.
	CodeInternal Code = "INTERNAL"
)

// Error is the concrete coded error. Attrs are slog-style key-value pairs
// ("guest_id", "...", "visit_id", "...") attached for caller context.
type Error struct {
	Code    Code
	Message string
	Attrs   []any
	cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	for i := 0; i+1 < len(e.Attrs); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.Attrs[i], e.Attrs[i+1])
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error. attrs must be key-value pairs.
func New(code Code, message string, attrs ...any) error {
	return &Error{Code: code, Message: message, Attrs: attrs}
}

// Wrap attaches a code and message to an underlying error while keeping the
// cause reachable through errors.Unwrap.
func Wrap(err error, code Code, message string, attrs ...any) error {
	return &Error{Code: code, Message: message, Attrs: attrs, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, falling back to CodeInternal for
// anything outside the taxonomy.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Attr returns the string value for a key attached to the error, or "".
func Attr(err error, key string) string {
	var de *Error
	if !errors.As(err, &de) {
		return ""
	}
	for i := 0; i+1 < len(de.Attrs); i += 2 {
		if k, ok := de.Attrs[i].(string); ok && k == key {
			return fmt.Sprintf("%v", de.Attrs[i+1])
		}
	}
	return ""
}
