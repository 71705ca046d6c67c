// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-io.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrBusy              = fmt.Errorf("operation not permitted in current state")
	ErrNoSuchProcess     = fmt.Errorf("no such process")
	ErrWouldBlock        = fmt.Errorf("operation would block")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	ErrIOFault           = fmt.Errorf("i/o fault")
	ErrNotRegistered     = fmt.Errorf("source not registered")
	ErrClosed            = fmt.Errorf("use of closed object")
	ErrNotSupported      = fmt.Errorf("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeBusy
	ErrCodeNoSuchProcess
	ErrCodeWouldBlock
	ErrCodeResourceExhausted
	ErrCodeIO
	ErrCodeNotRegistered
	ErrCodeClosed
	ErrCodeNotSupported
)

var codeSentinels = map[ErrorCode]error{
	ErrCodeInvalidArgument:   ErrInvalidArgument,
	ErrCodeBusy:              ErrBusy,
	ErrCodeNoSuchProcess:     ErrNoSuchProcess,
	ErrCodeWouldBlock:        ErrWouldBlock,
	ErrCodeResourceExhausted: ErrResourceExhausted,
	ErrCodeIO:                ErrIOFault,
	ErrCodeNotRegistered:     ErrNotRegistered,
	ErrCodeClosed:            ErrClosed,
	ErrCodeNotSupported:      ErrNotSupported,
}

// Sentinel returns the package-level error matching the code, or nil.
func (c ErrorCode) Sentinel() error {
	return codeSentinels[c]
}

// Error represents a structured error with code and context.
//
// Op names the failing operation ("read", "epoll_ctl", ...), Fd the descriptor
// involved (or -1), and Cause the underlying kernel error if any.
type Error struct {
	Code    ErrorCode
	Op      string
	Fd      int
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if s := e.Code.Sentinel(); s != nil {
		msg = fmt.Sprintf("%s: %v", e.Op, s)
	}
	if e.Fd >= 0 {
		msg = fmt.Sprintf("%s (fd=%d)", msg, e.Fd)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Context) != 0 {
		msg = fmt.Sprintf("%s (context: %+v)", msg, e.Context)
	}
	return msg
}

// Unwrap exposes the kernel cause, so errors.Is(err, unix.EPIPE) works.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel associated with the error code.
func (e *Error) Is(target error) bool {
	s := e.Code.Sentinel()
	return s != nil && s == target
}

// NewError creates a new structured error.
func NewError(code ErrorCode, op string, fd int, cause error) *Error {
	return &Error{
		Code:  code,
		Op:    op,
		Fd:    fd,
		Cause: cause,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Invalid wraps ErrInvalidArgument with a reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, reason)
}

// CodeOf returns the code of the first *Error in err's chain, falling back to
// sentinel matching, and ErrCodeOK for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for code, s := range codeSentinels {
		if errors.Is(err, s) {
			return code
		}
	}
	return ErrCodeIO
}
