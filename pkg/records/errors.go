package records

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure surfaced to callers.
type ErrorKind string

const (
	// KindStore indicates the underlying storage operation failed.
	// Examples: database unavailable, locked, constraint or I/O errors.
	KindStore ErrorKind = "store"

	// KindParse indicates malformed delimited input.
	KindParse ErrorKind = "parse"

	// KindValidation indicates a caller supplied an unusable argument.
	KindValidation ErrorKind = "validation"
)

// ErrCancelled reports that the user abandoned choosing a destination. It is
// not a failure: callers stop the operation without reporting an error.
var ErrCancelled = errors.New("cancelled by user")

// Error is a classified failure with the operation that produced it.
type Error struct {
	// Kind is the failure classification.
	Kind ErrorKind `json:"kind"`

	// Op is the operation being performed, e.g. "create" or "import".
	Op string `json:"op,omitempty"`

	// Message is the diagnostic text. For store failures it is the store's own
	// message.
	Message string `json:"message"`

	// Line is the 1-based input line for parse failures, 0 otherwise.
	Line int `json:"line,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Op != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Kind)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s error (line %d): %s", prefix, e.Line, e.Message)
	}
	return fmt.Sprintf("%s error: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so errors.Is(err, &Error{Kind: KindStore}) matches
// every store failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewStoreError wraps a store failure, keeping the store's diagnostic text.
func NewStoreError(op string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Kind:    KindStore,
		Op:      op,
		Message: msg,
		Err:     err,
	}
}

// NewParseError creates a parse failure.
func NewParseError(message string, err error) *Error {
	return &Error{
		Kind:    KindParse,
		Op:      "import",
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation failure.
func NewValidationError(message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
	}
}

// WithOp sets the operation on an error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithLine attaches an input line number.
func (e *Error) WithLine(line int) *Error {
	e.Line = line
	return e
}

// IsStoreError returns true if the error is classified as a store failure.
func IsStoreError(err error) bool {
	return kindOf(err) == KindStore
}

// IsParseError returns true if the error is classified as a parse failure.
func IsParseError(err error) bool {
	return kindOf(err) == KindParse
}

// IsValidationError returns true if the error is classified as a validation failure.
func IsValidationError(err error) bool {
	return kindOf(err) == KindValidation
}

// IsCancelled returns true if the user abandoned the operation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
