//go:build linux

package v4l2

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrorKind classifies failures reported by this package.
type ErrorKind string

// Error kinds.
const (
	ErrKindValidation         ErrorKind = "VALIDATION_ERROR"
	ErrKindOpen               ErrorKind = "OPEN_ERROR"
	ErrKindCapability         ErrorKind = "CAPABILITY_ERROR"
	ErrKindFormat             ErrorKind = "FORMAT_ERROR"
	ErrKindBufferAlloc        ErrorKind = "BUFFER_ALLOC_ERROR"
	ErrKindIO                 ErrorKind = "IO_ERROR"
	ErrKindControlUnsupported ErrorKind = "CONTROL_UNSUPPORTED"
	ErrKindConsistency        ErrorKind = "CONSISTENCY_VIOLATION"
	ErrKindState              ErrorKind = "ILLEGAL_STATE"
)

// Error is returned by every failing operation on a Device. Cause holds the
// underlying errno when the failure came from a system call.
type Error struct {
	Kind    ErrorKind
	Op      string
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Code returns the numeric errno carried by the error, or 0 when the
// failure did not originate in a system call.
func (e *Error) Code() int {
	var errno unix.Errno
	if errors.As(e.Cause, &errno) {
		return int(errno)
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Errno returns the errno wrapped by err, or 0.
func Errno(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

func newError(kind ErrorKind, op, path, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Message: message, Cause: cause}
}

func newErrorf(kind ErrorKind, op, path string, cause error, format string, args ...any) *Error {
	return newError(kind, op, path, fmt.Sprintf(format, args...), cause)
}
