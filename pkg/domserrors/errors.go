// Package domserrors provides structured error handling for DOMS with typed
// categories, key-value context, and stack traces captured at creation.
//
// # Overview
//
// Every failure surfaced by the export engine is a *Error carrying an
// ErrorType. Callers branch on the category with IsType or the dedicated
// predicates rather than matching message text:
//
//	data, err := results.ToColumnar()
//	if domserrors.IsMissingParameter(err) {
//	    key, _ := domserrors.ParameterKey(err)
//	    return badRequest("missing parameter " + key)
//	}
//
// # Error Types
//
// The engine raises four categories of its own:
//   - ErrorTypeMissingParameter: a required run parameter or detail key is absent
//   - ErrorTypeEncoding: a value the text exporter does not know how to encode
//   - ErrorTypeMalformedBoundingBox: a bounding box string that does not parse
//   - ErrorTypeNotImplemented: an export mode declared but not supported
//
// The remaining categories are used by the storage, archive and configuration
// layers around the engine.
//
// # Thread Safety
//
// Error instances are not thread-safe for modification. Finish calling
// WithDetail before sharing an error across goroutines.
package domserrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFile represents file and staging storage errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeMissingParameter represents an absent required parameter key
	ErrorTypeMissingParameter ErrorType = "missing_parameter"
	// ErrorTypeEncoding represents a value that cannot be encoded
	ErrorTypeEncoding ErrorType = "encoding"
	// ErrorTypeMalformedBoundingBox represents an unparseable bounding box
	ErrorTypeMalformedBoundingBox ErrorType = "malformed_bbox"
	// ErrorTypeNotImplemented represents an unsupported export mode
	ErrorTypeNotImplemented ErrorType = "not_implemented"
)

// Detail keys attached by the domain constructors.
const (
	DetailKey     = "key"
	DetailValue   = "value"
	DetailFeature = "feature"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: Categorizes the error for handling strategies
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface, returning a formatted error message
// that includes the error type, message, and cause (if present).
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, enabling compatibility with errors.Is
// and errors.As for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. It can be chained.
//
// Example:
//
//	err := domserrors.New(domserrors.ErrorTypeValidation, "invalid format").
//	    WithDetail("format", name)
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the original
// error as the cause. If the error is already a structured Error, its stack
// trace is preserved. Returns nil if the input error is nil.
//
// Example:
//
//	if err := fs.Remove(name); err != nil {
//	    return domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to remove staging file").
//	        WithDetail("path", name)
//	}
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// MissingParameter reports that a required parameter key is absent.
func MissingParameter(key string) *Error {
	e := &Error{
		Type:    ErrorTypeMissingParameter,
		Message: fmt.Sprintf("missing required parameter %q", key),
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailKey, key)
}

// InvalidParameter reports that a parameter is present but has an unusable type.
func InvalidParameter(key string, value interface{}, want string) *Error {
	e := &Error{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf("parameter %q is %T, want %s", key, value, want),
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailKey, key).WithDetail(DetailValue, value)
}

// Encoding reports a value the text exporter does not recognize.
func Encoding(value interface{}) *Error {
	e := &Error{
		Type:    ErrorTypeEncoding,
		Message: fmt.Sprintf("cannot encode value of type %T", value),
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailValue, fmt.Sprintf("%T", value))
}

// MalformedBoundingBox reports a bounding box string that cannot be parsed
// into four extrema.
func MalformedBoundingBox(bbox string, cause error) *Error {
	e := &Error{
		Type:    ErrorTypeMalformedBoundingBox,
		Message: fmt.Sprintf("malformed bounding box %q", bbox),
		Cause:   cause,
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailValue, bbox)
}

// NotImplemented reports an export mode or feature that is declared but not
// supported.
func NotImplemented(feature string) *Error {
	e := &Error{
		Type:    ErrorTypeNotImplemented,
		Message: fmt.Sprintf("%s is not implemented", feature),
		Stack:   captureStack(2),
	}
	return e.WithDetail(DetailFeature, feature)
}

// IsRetryable returns true if the error is retryable based on its type.
// Only timeout and connection errors, raised by the store and archive layers,
// are retryable; every export failure is deterministic.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsMissingParameter reports whether err is a missing parameter error.
func IsMissingParameter(err error) bool { return IsType(err, ErrorTypeMissingParameter) }

// IsEncoding reports whether err is an encoding error.
func IsEncoding(err error) bool { return IsType(err, ErrorTypeEncoding) }

// IsMalformedBoundingBox reports whether err is a malformed bounding box error.
func IsMalformedBoundingBox(err error) bool { return IsType(err, ErrorTypeMalformedBoundingBox) }

// IsNotImplemented reports whether err is a not implemented error.
func IsNotImplemented(err error) bool { return IsType(err, ErrorTypeNotImplemented) }

// ParameterKey returns the parameter key recorded on a missing or invalid
// parameter error.
func ParameterKey(err error) (string, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	key, ok := e.Details[DetailKey].(string)
	return key, ok
}

// captureStack captures the current call stack up to maxFrames deep,
// skipping the specified number of frames from the top.
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
