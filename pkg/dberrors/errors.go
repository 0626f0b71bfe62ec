// Package dberrors defines the engine's closed error taxonomy and a
// structured error type that carries enough context (kind, the offending
// name/value, a source position, and an optional cause) for callers to react
// programmatically via errors.As, while still printing a readable message.
package dberrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the families spec.md §7 defines.
// Executors map lower-level storage/index kinds to query-level kinds only
// when the mapping is unambiguous; otherwise the original kind is preserved.
type Kind string

const (
	// Storage
	IOError               Kind = "IO_ERROR"
	PageFull              Kind = "PAGE_FULL"
	InvalidPageType       Kind = "INVALID_PAGE_TYPE"
	InvalidRecordFormat   Kind = "INVALID_RECORD_FORMAT"
	RecordTooLarge        Kind = "RECORD_TOO_LARGE"
	RecordNotFound        Kind = "RECORD_NOT_FOUND"

	// Query
	SyntaxError        Kind = "SYNTAX_ERROR"
	TableNotFound      Kind = "TABLE_NOT_FOUND"
	TableExists        Kind = "TABLE_EXISTS"
	ColumnNotFound     Kind = "COLUMN_NOT_FOUND"
	DuplicateColumn    Kind = "DUPLICATE_COLUMN"
	AmbiguousColumn    Kind = "AMBIGUOUS_COLUMN"
	InvalidConstraint  Kind = "INVALID_CONSTRAINT"
	TypeError          Kind = "TYPE_ERROR"
	SchemaMismatch     Kind = "SCHEMA_MISMATCH"
	UnsupportedType    Kind = "UNSUPPORTED_TYPE"

	// Index
	DuplicateKey   Kind = "DUPLICATE_KEY"
	IndexNotFound  Kind = "INDEX_NOT_FOUND"

	// Engine
	NotImplemented Kind = "NOT_IMPLEMENTED"
	InternalError  Kind = "INTERNAL_ERROR"
	InvalidArgument Kind = "INVALID_ARGUMENT"
)

// Error is the structured error type every package in this module returns.
// One Error is raised per statement; it is never partially populated with a
// result set.
type Error struct {
	Kind    Kind
	Message string
	Detail  string // the offending name or value, when useful
	Pos     int    // byte offset into source SQL text; -1 when not applicable
	Cause   error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with no cause and no byte position.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Pos: -1}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithDetail returns a copy of e with Detail set.
func (e *Error) WithDetail(detail string) *Error {
	ne := *e
	ne.Detail = detail
	return &ne
}

// WithPos returns a copy of e with a byte offset attached, for syntax errors.
func (e *Error) WithPos(pos int) *Error {
	ne := *e
	ne.Pos = pos
	return &ne
}

// Wrap attaches a cause to a new Error of the given kind.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Pos: -1}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, or "" if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
