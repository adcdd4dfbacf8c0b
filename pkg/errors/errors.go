// Package errors provides structured error handling for Prism.
//
// Every fatal condition a profiling session can hit is expressed as an *Error
// carrying a stable Kind discriminator, so hosts can branch on the kind rather
// than on message text. Per-record and per-field kinds exist so quality
// counters and issues can name them; they are never returned from session
// operations.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind is the stable discriminator of a profiling error.
type Kind string

const (
	// KindParse marks structurally inconsistent input. Fatal to the session.
	KindParse Kind = "PARSE_ERROR"
	// KindFieldCountMismatch marks a record whose field count differs from the schema.
	KindFieldCountMismatch Kind = "FIELD_COUNT_MISMATCH"
	// KindUnsupportedCoercion marks a value that does not coerce to its column's locked type.
	KindUnsupportedCoercion Kind = "UNSUPPORTED_TYPE_COERCION"
	// KindCancelled marks a user-initiated cancellation. Not an error condition.
	KindCancelled Kind = "CANCELLED"
	// KindResourceExhausted marks a bounded buffer that would have to grow past its limit.
	KindResourceExhausted Kind = "RESOURCE_EXHAUSTED"
	// KindSource marks an I/O failure of the chunk source.
	KindSource Kind = "SOURCE_ERROR"
	// KindProtocol marks a message that violates the session protocol.
	KindProtocol Kind = "PROTOCOL_VIOLATION"
	// KindConfig marks invalid configuration.
	KindConfig Kind = "CONFIG_ERROR"
	// KindInternal marks a bug.
	KindInternal Kind = "INTERNAL"
)

// Error represents a structured error with context.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]interface{}
	// RecordIndex is the zero-based index of the offending record, or -1 when unknown.
	RecordIndex int64
	Stack       []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRecord records the index of the record that caused the error.
func (e *Error) WithRecord(index int64) *Error {
	e.RecordIndex = index
	return e
}

// Recoverable reports whether a fresh session might succeed where this one failed.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case KindSource, KindResourceExhausted:
		return true
	default:
		return false
	}
}

// New creates a new error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		RecordIndex: -1,
		Stack:       captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		RecordIndex: -1,
		Stack:       captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack and record index
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Kind:        kind,
			Message:     message,
			Cause:       err,
			RecordIndex: existingErr.RecordIndex,
			Stack:       existingErr.Stack,
		}
	}

	return &Error{
		Kind:        kind,
		Message:     message,
		Cause:       err,
		RecordIndex: -1,
		Stack:       captureStack(2),
	}
}

// IsKind checks if the error is of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the kind of the outermost *Error in the chain, or KindInternal
// for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal
	}
	return e.Kind
}

// IsRecoverable reports whether err is a recoverable *Error.
func IsRecoverable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Recoverable()
}

// Is forwards to the standard library so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library so callers need a single import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
