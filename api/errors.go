// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-chat.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrRegistryFull      = errors.New("session registry is full")
	ErrServerFull        = errors.New("server rejected connection: full")
	ErrNameInvalid       = errors.New("name is invalid")
	ErrNameTaken         = errors.New("name is taken")
	ErrNotFound          = errors.New("session not found")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrDisconnected      = errors.New("peer disconnected")
	ErrFrameTimeout      = errors.New("frame read timed out")
	ErrShortSend         = errors.New("frame only partly sent")
	ErrPollerClosed      = errors.New("poller is closed")
	ErrNotSupported      = errors.New("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeProtocol
	ErrCodeDisconnected
	ErrCodeTimeout
	ErrCodeNotFound
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Violation builds a protocol-violation error carrying the offending detail.
func Violation(message string, cause error) *Error {
	e := NewError(ErrCodeProtocol, message)
	e.Err = ErrProtocolViolation
	if cause != nil {
		e.Err = fmt.Errorf("%w: %w", ErrProtocolViolation, cause)
	}
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode of err, mapping well-known sentinels.
func CodeOf(err error) ErrorCode {
	var e *Error
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, ErrProtocolViolation):
		return ErrCodeProtocol
	case errors.Is(err, ErrDisconnected), errors.Is(err, ErrShortSend):
		return ErrCodeDisconnected
	case errors.Is(err, ErrFrameTimeout):
		return ErrCodeTimeout
	case errors.Is(err, ErrRegistryFull), errors.Is(err, ErrServerFull):
		return ErrCodeResourceExhausted
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	default:
		return ErrCodeInternal
	}
}
